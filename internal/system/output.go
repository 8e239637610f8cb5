package system

import (
	"time"

	coresys "github.com/arenasync/server/internal/core/system"
	"github.com/arenasync/server/internal/game"
	"github.com/arenasync/server/internal/net"
)

// OutputSystem serializes the tick's world changes, hands the frame to
// every joined client and flushes all session buffers. Phase 4 (Output).
type OutputSystem struct {
	game  *game.Game
	store *net.SessionStore
}

func NewOutputSystem(g *game.Game, store *net.SessionStore) *OutputSystem {
	return &OutputSystem{game: g, store: store}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	if !s.game.Stopped() {
		s.game.NetSync()
	}
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}
