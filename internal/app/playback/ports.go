package playback

import (
	"context"

	"github.com/osa030/guildbox/internal/domain/track"
)

// Resolver turns a request into playable metadata.
type Resolver interface {
	Resolve(ctx context.Context, req track.Request) (track.Resolved, error)
}

// AudioSink plays one resolved track at a time.
//
// Play must return promptly. onComplete is invoked exactly once when the
// track ends, is stopped, or fails, possibly from another goroutine.
type AudioSink interface {
	Play(t track.Resolved, onComplete func(error)) error
	Stop() error
	IsPlaying() bool
	Close() error
}

// Host gates the loop until the underlying connection is usable.
type Host interface {
	WaitReady(ctx context.Context) error
}

// Admitter decides whether a resolved track may be played.
type Admitter interface {
	Admit(ctx context.Context, t track.Resolved) error
}

// Notifier receives playback events.
type Notifier interface {
	Notify(e Event)
}

// HostFunc adapts a function to the Host interface.
type HostFunc func(ctx context.Context) error

// WaitReady calls f(ctx).
func (f HostFunc) WaitReady(ctx context.Context) error { return f(ctx) }

// ReadyHost is a Host that is always ready.
var ReadyHost Host = HostFunc(func(context.Context) error { return nil })
