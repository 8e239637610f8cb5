package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/core/event"
	coresys "github.com/arenasync/server/internal/core/system"
	"github.com/arenasync/server/internal/game"
)

// EventDispatchSystem delivers last tick's events. Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// CommandSystem runs operator commands queued from the console and
// scripts. Phase 1 (PreUpdate), after event dispatch.
type CommandSystem struct {
	queue *game.CommandQueue
	game  *game.Game
	log   *zap.Logger
}

func NewCommandSystem(q *game.CommandQueue, g *game.Game, log *zap.Logger) *CommandSystem {
	return &CommandSystem{queue: q, game: g, log: log}
}

func (s *CommandSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *CommandSystem) Update(_ time.Duration) {
	s.queue.Drain(s.game, s.log)
}

// UpdateSystem advances the simulation. Phase 2 (Update).
type UpdateSystem struct {
	game *game.Game
}

func NewUpdateSystem(g *game.Game) *UpdateSystem {
	return &UpdateSystem{game: g}
}

func (s *UpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UpdateSystem) Update(dt time.Duration) {
	if s.game.Stopped() {
		return
	}
	s.game.Update(dt)
}
