package system

import (
	"time"

	coresys "github.com/arenasync/server/internal/core/system"
	"github.com/arenasync/server/internal/net"
	"github.com/arenasync/server/internal/net/packet"
)

// CleanupSystem closes sessions marked Disconnecting. Output has flushed
// their last frames by now and the writer sends them before hanging up.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	store *net.SessionStore
}

func NewCleanupSystem(store *net.SessionStore) *CleanupSystem {
	return &CleanupSystem{store: store}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.store.ForEach(func(sess *net.Session) {
		if !sess.IsClosed() && sess.State() == packet.StateDisconnecting {
			sess.Close()
		}
	})
}
