// Package subagent schedules and supervises subagent sessions spawned by a
// session_spawn tool call: one child nest-agent process per subagent,
// tracked from spawn through pause/resume/instruct/cancel to completion.
// Structured after the teacher's pkg/orchestration fork-join executor idiom
// (bounded concurrent fan-out, a per-branch goroutine, a shared results
// channel) generalized from "wait for every branch" to "track each branch's
// independent, steerable lifecycle."
package subagent

import "fmt"

// Phase is a subagent's lifecycle phase as seen by its parent, distinct
// from store.SessionStatus: a subagent additionally has a Spawning phase
// before its child process has announced it's ready, and collapses
// WaitingForAnswer into Running from the parent's point of view (the
// parent only cares whether it can still steer the subagent).
type Phase string

const (
	PhaseSpawning Phase = "spawning"
	PhaseRunning  Phase = "running"
	PhasePaused   Phase = "paused"
	PhaseDone     Phase = "done"
	PhaseFailed   Phase = "failed"
	PhaseCancelled Phase = "cancelled"
)

var validTransitions = map[Phase][]Phase{
	PhaseSpawning: {PhaseRunning, PhaseFailed, PhaseCancelled},
	PhaseRunning:  {PhasePaused, PhaseDone, PhaseFailed, PhaseCancelled},
	PhasePaused:   {PhaseRunning, PhaseCancelled},
}

// CanTransition reports whether moving from phase `from` to `to` is legal.
// Done/Failed/Cancelled are terminal: nothing transitions out of them.
func CanTransition(from, to Phase) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition reports an illegal phase change attempt.
type ErrInvalidTransition struct {
	From, To Phase
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot transition subagent from %s to %s", e.From, e.To)
}
