package playback

import (
	"time"

	"github.com/osa030/guildbox/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted   EventType = iota // Sink accepted a track and started playing
	EventTrackEnded                      // Track completed and was added to history
	EventResolveFailed                   // Request could not be resolved or was not admitted
	EventSinkFailed                      // Sink refused the track or failed mid-stream
	EventIdleTimeout                     // Nothing was queued within the idle bound
	EventSessionStopped                  // Session was torn down
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventResolveFailed:
		return "resolve_failed"
	case EventSinkFailed:
		return "sink_failed"
	case EventIdleTimeout:
		return "idle_timeout"
	case EventSessionStopped:
		return "session_stopped"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type      EventType
	ChannelID string
	Request   track.Request   // Request being processed (nil for lifecycle events)
	Track     *track.Resolved // Resolved track (nil when resolution failed)
	Err       error
	State     State
	At        time.Time
}
