package handler

import (
	"errors"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/game"
	"github.com/arenasync/server/internal/net"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/world"
)

// Disconnect reasons sent to clients.
const (
	ReasonInvalidProtocol = "invalid_protocol"
	ReasonGameFull        = "game_full"
	ReasonGameOver        = "game_over"
	ReasonServerError     = "server_error"
)

// HandleJoin processes Join: checks the protocol version and spawns the
// player. AddPlayer sends Joined and Map itself.
func HandleJoin(sess *net.Session, s *packet.Stream, deps *Deps) {
	var msg packet.JoinMsg
	msg.Deserialize(s)
	if s.Err() != nil {
		return
	}

	if msg.Protocol != packet.ProtocolVersion {
		deps.Log.Info("join rejected: protocol mismatch",
			zap.Uint64("session", sess.ID),
			zap.Uint16("client", msg.Protocol),
			zap.Uint16("server", packet.ProtocolVersion),
		)
		rejectJoin(sess, deps, ReasonInvalidProtocol)
		return
	}

	o, err := deps.Game.Players.AddPlayer(sess, sess.ID, msg.Name)
	if err != nil {
		reason := ReasonServerError
		switch {
		case errors.Is(err, game.ErrGameFull):
			reason = ReasonGameFull
		case errors.Is(err, game.ErrGameStopped):
			reason = ReasonGameOver
		}
		deps.Log.Info("join rejected", zap.Uint64("session", sess.ID), zap.Error(err))
		rejectJoin(sess, deps, reason)
		return
	}
	sess.PlayerID = uint16(o.ID)
	sess.PlayerName = world.As[*world.Player](o).Name
	sess.SetState(packet.StateJoined)
}

// rejectJoin queues a Disconnect and marks the session; the cleanup system
// closes it after the output phase flushed the message.
func rejectJoin(sess *net.Session, deps *Deps, reason string) {
	deps.Game.SendTo(sess, packet.MsgDisconnect, &packet.DisconnectMsg{Reason: reason})
	sess.SetState(packet.StateDisconnecting)
}

// HandleInput applies the client's control state to its player.
func HandleInput(sess *net.Session, s *packet.Stream, deps *Deps) {
	msg := &deps.input
	msg.Deserialize(s)
	if s.Err() != nil {
		return
	}
	if err := deps.Game.Players.HandleInput(world.ObjectID(sess.PlayerID), msg); err != nil {
		deps.Log.Debug("input dropped", zap.Uint64("session", sess.ID), zap.Error(err))
	}
}

// HandleResync answers a client that lost track of the world: the next
// Update carries every live object in full.
func HandleResync(sess *net.Session, _ *packet.Stream, deps *Deps) {
	deps.Log.Debug("resync requested", zap.Uint64("session", sess.ID), zap.Uint16("player", sess.PlayerID))
	deps.Game.Resync()
}

// HandleDisconnect is a client leaving voluntarily.
func HandleDisconnect(sess *net.Session, s *packet.Stream, deps *Deps) {
	var msg packet.DisconnectMsg
	msg.Deserialize(s)
	deps.Log.Info("client disconnect",
		zap.Uint64("session", sess.ID),
		zap.String("reason", msg.Reason),
	)
	sess.SetState(packet.StateDisconnecting)
}
