package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain session queues, dispatch messages
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: simulation
	PhasePostUpdate              // 3: perf accounting
	PhaseOutput                  // 4: serialize, hand off, flush
	PhasePersist                 // 5: match archive writes
	PhaseCleanup                 // 6: close finished sessions
)

// System is one step of the tick, run by Runner in phase order.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
