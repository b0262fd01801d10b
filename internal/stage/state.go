package stage

import "fmt"

// RunState is the lifecycle state of a Run.
type RunState int

const (
	RunPending RunState = iota
	RunRunning
	RunCompleted          // Every stage ran without failures.
	RunPartiallyCompleted // Every stage ran; some derivatives failed.
	RunFailed             // Halted by a fail-fast stage or cancellation.
)

func (s RunState) String() string {
	switch s {
	case RunPending:
		return "PENDING"
	case RunRunning:
		return "RUNNING"
	case RunCompleted:
		return "COMPLETED"
	case RunPartiallyCompleted:
		return "PARTIALLY_COMPLETED"
	case RunFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// IsTerminal reports whether the state is final.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunCompleted, RunPartiallyCompleted, RunFailed:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to RunState) bool {
	switch from {
	case RunPending:
		return to == RunRunning
	case RunRunning:
		return to.IsTerminal()
	default:
		return false
	}
}

// transition moves r from the expected state to the next one. The expected
// prior state makes out-of-order updates observable.
func (r *Run) transition(from, to RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return fmt.Errorf("invalid transition for run %s: expected %s, got %s", r.ID, from, r.state)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for run %s: %s -> %s", r.ID, from, to)
	}
	r.state = to
	return nil
}
