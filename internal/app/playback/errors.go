package playback

import "github.com/cockroachdb/errors"

// Errors
var (
	// ErrResolution marks a failure to turn a request into a playable track,
	// including admission filter rejections.
	ErrResolution = errors.New("resolution failed")
	// ErrSink marks a failure reported by the audio sink.
	ErrSink = errors.New("audio sink failed")
	// ErrQueueRejected marks a queue mutation that was refused.
	ErrQueueRejected = errors.New("queue operation rejected")
	// ErrIdleTimeout is returned by Dequeue when nothing arrived in time.
	ErrIdleTimeout = errors.New("idle timeout")
	// ErrTeardownRace marks a sink completion delivered after the loop stopped waiting.
	ErrTeardownRace = errors.New("completion after teardown")
	// ErrNoTrack is returned by Skip when nothing is playing.
	ErrNoTrack = errors.New("no track playing")
)
