package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/arenasync/server/internal/core/system"
	"github.com/arenasync/server/internal/game"
	"github.com/arenasync/server/internal/net"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/world"
)

// SessionSource is the accept side of the network server.
type SessionSource interface {
	NewSessions() <-chan *net.Session
	DeadSessions() <-chan uint64
	NotifyDead(sessionID uint64)
}

// InputSystem drains frame queues from all sessions and dispatches them
// through the packet registry. Phase 0 (Input).
type InputSystem struct {
	src        SessionSource
	registry   *packet.Registry
	store      *net.SessionStore
	game       *game.Game
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(src SessionSource, registry *packet.Registry, store *net.SessionStore, g *game.Game, maxPerTick int, log *zap.Logger) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 8
	}
	return &InputSystem{
		src:        src,
		registry:   registry,
		store:      store,
		game:       g,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.src.NewSessions():
			if s.game.Stopped() {
				sess.Close()
				continue
			}
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Process dead sessions
	for {
		select {
		case id := <-s.src.DeadSessions():
			s.store.Remove(id)
		default:
			goto doneDead
		}
	}
doneDead:

	for _, sess := range s.store.Snapshot() {
		if sess.IsClosed() {
			s.handleDisconnect(sess)
			s.src.NotifyDead(sess.ID)
			s.store.Remove(sess.ID)
			continue
		}

		s.drain(sess)
	}

	// Early flush: Joined and Map replies reach the writers before the
	// simulation runs. OutputSystem flushes the Update later in the tick.
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

// drain dispatches up to maxPerTick queued frames of one session.
func (s *InputSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if sess.State() == packet.StateDisconnecting {
				continue // on its way out; drop
			}
			if err := s.registry.Dispatch(sess, sess.State, data); err != nil {
				s.log.Debug("dispatch error",
					zap.Uint64("session", sess.ID),
					zap.Stringer("state", sess.State()),
					zap.Error(err),
				)
				// A client with no player may only send Join.
				if sess.PlayerID == 0 {
					sess.Close()
					return
				}
			}
		default:
			return
		}
	}
}

// handleDisconnect deletes the player of a closed session. Remaining
// clients see the delete in this tick's Update.
func (s *InputSystem) handleDisconnect(sess *net.Session) {
	if sess.PlayerID == 0 {
		return
	}
	if err := s.game.Players.RemovePlayer(world.ObjectID(sess.PlayerID)); err != nil {
		s.log.Warn("remove player", zap.Uint64("session", sess.ID), zap.Error(err))
	}
	sess.PlayerID = 0
}

// SessionCount returns the current number of tracked sessions.
func (s *InputSystem) SessionCount() int {
	return s.store.Count()
}
