// Package playback provides the per-channel playback loop and its queue.
package playback

// State represents the playback loop state.
type State int

const (
	StateWaitingForReady    State = iota // Waiting for the host connection
	StateIdle                            // Waiting for the next queued request
	StateResolving                       // Resolving a request into a playable track
	StateStreaming                       // Handing the track to the audio sink
	StateAwaitingCompletion              // Sink is playing, waiting for completion
	StateStopped                         // Loop has exited
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateWaitingForReady:
		return "waiting_for_ready"
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateStreaming:
		return "streaming"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
