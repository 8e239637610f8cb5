package handler

import (
	"go.uber.org/zap"

	"github.com/arenasync/server/internal/game"
	"github.com/arenasync/server/internal/net"
	"github.com/arenasync/server/internal/net/packet"
)

// Deps holds shared dependencies injected into all message handlers.
type Deps struct {
	Game *game.Game
	Log  *zap.Logger

	input packet.InputMsg // decoded in place, game loop only
}

// RegisterAll registers all message handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	// Before a player exists only Join is accepted; anything else fails the
	// state check and the session is closed by the input system.
	reg.Register(packet.MsgJoin,
		[]packet.SessionState{packet.StateConnected},
		func(sess any, s *packet.Stream) {
			HandleJoin(sess.(*net.Session), s, deps)
		},
	)

	joined := []packet.SessionState{packet.StateJoined}

	reg.Register(packet.MsgInput, joined,
		func(sess any, s *packet.Stream) {
			HandleInput(sess.(*net.Session), s, deps)
		},
	)
	reg.Register(packet.MsgResync, joined,
		func(sess any, s *packet.Stream) {
			HandleResync(sess.(*net.Session), s, deps)
		},
	)
	reg.Register(packet.MsgDisconnect, joined,
		func(sess any, s *packet.Stream) {
			HandleDisconnect(sess.(*net.Session), s, deps)
		},
	)
}
