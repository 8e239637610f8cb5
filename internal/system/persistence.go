package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/core/event"
	coresys "github.com/arenasync/server/internal/core/system"
)

// maxPendingKills bounds the batch kept across failed writes.
const maxPendingKills = 4096

// KillArchive stores kill events of the running match.
type KillArchive interface {
	WriteKills(ctx context.Context, kills []event.PlayerKilled) error
}

// PersistenceSystem batches kill events from the bus and writes them to
// the match archive every interval ticks. Phase 5 (Persist).
type PersistenceSystem struct {
	archive   KillArchive
	log       *zap.Logger
	pending   []event.PlayerKilled
	written   int
	tickCount int
	interval  int // write every N ticks
}

func NewPersistenceSystem(bus *event.Bus, archive KillArchive, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	s := &PersistenceSystem{
		archive:  archive,
		log:      log,
		interval: intervalTicks,
	}
	event.Subscribe(bus, func(ev event.PlayerKilled) {
		if len(s.pending) >= maxPendingKills {
			s.log.Warn("kill archive backlog full, dropping oldest")
			s.pending = s.pending[1:]
		}
		s.pending = append(s.pending, ev)
	})
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.flush()
}

// Flush writes all pending kills immediately. Called on shutdown.
func (s *PersistenceSystem) Flush() {
	s.flush()
}

// Pending returns the number of kills not yet written.
func (s *PersistenceSystem) Pending() int { return len(s.pending) }

// Written returns the number of kills archived so far.
func (s *PersistenceSystem) Written() int { return s.written }

func (s *PersistenceSystem) flush() {
	if len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.archive.WriteKills(ctx, s.pending); err != nil {
		// Kept for the next interval.
		s.log.Error("archive kills failed", zap.Int("count", len(s.pending)), zap.Error(err))
		return
	}
	s.written += len(s.pending)
	s.pending = s.pending[:0]
}
