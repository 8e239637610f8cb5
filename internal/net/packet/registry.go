package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateConnected     SessionState = iota // socket open, no Join yet
	StateJoined                            // controls a player object
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateJoined:
		return "Joined"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for message handlers. The stream is
// positioned right after the message tag; the handler decodes the payload.
// The session is passed as an opaque value to avoid import cycles.
type HandlerFunc func(sess any, s *Stream)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps message types to handlers with state-based access control.
type Registry struct {
	handlers map[MsgType]*handlerEntry
	types    *Types
	log      *zap.Logger
}

func NewRegistry(types *Types, log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[MsgType]*handlerEntry),
		types:    types,
		log:      log,
	}
}

// Register maps a message type to a handler, restricted to the given states.
func (reg *Registry) Register(t MsgType, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[t] = &handlerEntry{fn: fn, allowedStates: allowed}
}

// Dispatch decodes every message framed in data and runs its handler. It
// stops at the first unknown type, disallowed state, decode error, or
// handler panic, since the rest of the frame can no longer be located.
// state is re-read through stateFn after each handler so a Join followed by
// an Input in the same frame dispatches correctly.
func (reg *Registry) Dispatch(sess any, stateFn func() SessionState, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty packet")
	}
	ms := NewMsgReader(data, reg.types)
	for {
		t, ok := ms.Next()
		if !ok {
			break
		}
		state := stateFn()
		reg.log.Debug("received message",
			zap.Stringer("type", t),
			zap.Int("size", len(data)),
			zap.Stringer("state", state),
		)

		entry, ok := reg.handlers[t]
		if !ok {
			return fmt.Errorf("unknown message type %s", t)
		}
		if !entry.allowedStates[state] {
			reg.log.Warn("message not allowed in state",
				zap.Stringer("type", t),
				zap.Stringer("state", state),
			)
			return fmt.Errorf("message %s not allowed in state %s", t, state)
		}
		if err := reg.safeCall(entry.fn, sess, ms.Stream(), t); err != nil {
			return err
		}
		if err := ms.Stream().Err(); err != nil {
			return fmt.Errorf("decode %s: %w", t, err)
		}
	}
	return ms.Stream().Err()
}

// safeCall executes a handler with panic recovery so a single bad message
// cannot crash the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, s *Stream, t MsgType) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Stringer("type", t),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for %s: %v", t, rec)
		}
	}()
	fn(sess, s)
	return nil
}
