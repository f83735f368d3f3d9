// Package state provides session lifecycle state.
package state

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseActive      Phase = iota // Loop running
	PhaseTearingDown              // Teardown in progress
	PhaseTerminated               // Session has ended
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseTearingDown:
		return "tearing_down"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Reason represents why a session was torn down.
type Reason int

const (
	ReasonNone         Reason = iota // Not torn down
	ReasonStop                       // Explicit stop request
	ReasonIdleTimeout                // Nothing queued within the idle bound
	ReasonHostShutdown               // Host is shutting down
	ReasonLoopError                  // Loop ended with an unexpected error
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonStop:
		return "stop"
	case ReasonIdleTimeout:
		return "idle_timeout"
	case ReasonHostShutdown:
		return "host_shutdown"
	case ReasonLoopError:
		return "loop_error"
	default:
		return "unknown"
	}
}
