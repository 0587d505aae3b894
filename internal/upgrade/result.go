package upgrade

import "github.com/example/dbup/internal/script"

// Result is the outcome of one command run.
type Result struct {
	RunID       string          // Correlates the result with the run's log lines
	Scripts     []script.Script // Scripts executed or recorded, in order
	Successful  bool
	Error       error  // Set when Successful is false; a *ScriptError when a script was in progress
	ErrorScript string // Name of the script in progress at failure, if any
}

// Names returns the names of the processed scripts.
func (r Result) Names() []string {
	return script.Names(r.Scripts)
}

// Phase is the state of one engine run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseEmpty
	PhaseExecuting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseResolving:
		return "resolving"
	case PhaseEmpty:
		return "empty"
	case PhaseExecuting:
		return "executing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func isAllowedTransition(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		return to == PhaseResolving || to == PhaseFailed
	case PhaseResolving:
		return to == PhaseEmpty || to == PhaseExecuting || to == PhaseFailed
	case PhaseEmpty, PhaseExecuting:
		return to == PhaseDone || to == PhaseFailed
	default:
		return false
	}
}
