package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/osa030/guildbox/internal/domain/track"
	zlog "github.com/rs/zerolog/log"
)

// Config holds controller configuration.
type Config struct {
	IdleTimeout    time.Duration // Bound on each wait for the next request (0 disables)
	ResolveTimeout time.Duration // Bound on each resolver call (0 disables)
	ListLimit      int           // Default and maximum listing size
	MinShuffleSize int           // Smallest queue that may be shuffled
}

// Deps are the collaborators a controller drives.
type Deps struct {
	Resolver Resolver
	Sink     AudioSink
	Host     Host     // Optional, defaults to ReadyHost
	Admitter Admitter // Optional
	Notifier Notifier // Optional
}

// Controller runs the playback loop for one channel.
type Controller struct {
	channelID string
	config    Config
	deps      Deps

	queue   *Queue
	history *History

	mu      sync.RWMutex
	state   State
	current *track.Resolved
}

// NewController creates a new playback controller.
func NewController(channelID string, config Config, deps Deps) (*Controller, error) {
	if deps.Resolver == nil {
		return nil, errors.New("playback: resolver is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("playback: audio sink is required")
	}
	if deps.Host == nil {
		deps.Host = ReadyHost
	}
	if config.ListLimit <= 0 {
		config.ListLimit = DefaultListLimit
	}

	return &Controller{
		channelID: channelID,
		config:    config,
		deps:      deps,
		queue:     NewQueue(config.MinShuffleSize),
		history:   NewHistory(),
		state:     StateWaitingForReady,
	}, nil
}

// Run executes the playback loop until the idle bound expires or ctx is done.
// It returns ErrIdleTimeout or the context error; per-track failures are
// reported as events and never end the loop.
func (c *Controller) Run(ctx context.Context) error {
	defer c.setState(StateStopped)

	c.setState(StateWaitingForReady)
	if err := c.deps.Host.WaitReady(ctx); err != nil {
		return errors.Wrap(err, "wait for host")
	}

	for {
		c.setState(StateIdle)
		req, err := c.queue.Dequeue(ctx, c.config.IdleTimeout)
		if err != nil {
			if errors.Is(err, ErrIdleTimeout) {
				zlog.Info().Msgf("playback: idle timeout: channel=%s after=%v", c.channelID, c.config.IdleTimeout)
				c.emit(Event{Type: EventIdleTimeout})
			}
			return err
		}

		if err := c.playOne(ctx, req); err != nil {
			return err
		}
	}
}

// playOne drives a single request through resolve, stream and completion.
// Only context errors are returned.
func (c *Controller) playOne(ctx context.Context, req track.Request) error {
	c.setState(StateResolving)
	resolved, err := c.resolve(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		zlog.Warn().Err(err).Msgf("playback: resolve failed: channel=%s request=%q", c.channelID, req.Display())
		c.emit(Event{Type: EventResolveFailed, Request: req, Err: err})
		return nil
	}

	c.setState(StateStreaming)
	done := newCompletion(c.channelID)

	c.mu.Lock()
	c.current = &resolved
	c.mu.Unlock()

	if err := c.deps.Sink.Play(resolved, done.fire); err != nil {
		c.clearCurrent()
		err = errors.Mark(errors.Wrapf(err, "play %q", resolved.Title), ErrSink)
		zlog.Warn().Err(err).Msgf("playback: sink refused track: channel=%s", c.channelID)
		c.emit(Event{Type: EventSinkFailed, Request: req, Track: &resolved, Err: err})
		return nil
	}

	c.setState(StateAwaitingCompletion)
	zlog.Info().Msgf("playback: track started: channel=%s track=%q duration=%v",
		c.channelID, resolved.Title, resolved.Duration)
	c.emit(Event{Type: EventTrackStarted, Request: req, Track: &resolved})

	select {
	case err := <-done.ch:
		c.clearCurrent()
		if err != nil {
			err = errors.Mark(errors.Wrapf(err, "stream %q", resolved.Title), ErrSink)
			zlog.Warn().Err(err).Msgf("playback: sink failed mid-stream: channel=%s", c.channelID)
			c.emit(Event{Type: EventSinkFailed, Request: req, Track: &resolved, Err: err})
			return nil
		}
		c.history.Append(resolved.Summary())
		zlog.Debug().Msgf("playback: track ended: channel=%s track=%q", c.channelID, resolved.Title)
		c.emit(Event{Type: EventTrackEnded, Request: req, Track: &resolved})
		return nil
	case <-ctx.Done():
		done.abandon()
		c.clearCurrent()
		return ctx.Err()
	}
}

func (c *Controller) resolve(ctx context.Context, req track.Request) (track.Resolved, error) {
	rctx := ctx
	if c.config.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, c.config.ResolveTimeout)
		defer cancel()
	}

	resolved, err := c.deps.Resolver.Resolve(rctx, req)
	if err != nil {
		return track.Resolved{}, errors.Mark(errors.Wrapf(err, "resolve %q", req.Display()), ErrResolution)
	}
	if resolved.Requester == (track.Requester{}) {
		resolved.Requester = req.RequestedBy()
	}

	if c.deps.Admitter != nil {
		if err := c.deps.Admitter.Admit(ctx, resolved); err != nil {
			return track.Resolved{}, errors.Mark(errors.Wrapf(err, "admit %q", resolved.Title), ErrResolution)
		}
	}
	return resolved, nil
}

// Enqueue appends requests to the queue.
func (c *Controller) Enqueue(reqs ...track.Request) {
	c.queue.Enqueue(reqs...)
}

// EnqueueIf appends requests when admit, checked under the queue lock,
// reports true.
func (c *Controller) EnqueueIf(admit func() bool, reqs ...track.Request) bool {
	return c.queue.EnqueueIf(admit, reqs...)
}

// OnIdle registers fn to run atomically with the loop's idle decision, before
// Run returns ErrIdleTimeout.
func (c *Controller) OnIdle(fn func()) {
	c.queue.SetIdleHook(fn)
}

// Clear empties the queue. The current track keeps playing.
func (c *Controller) Clear() {
	c.queue.Clear()
}

// Shuffle randomizes the queue order.
func (c *Controller) Shuffle() error {
	return c.queue.Shuffle()
}

// Skip stops the current track; the loop treats it as completed.
func (c *Controller) Skip() error {
	if !c.deps.Sink.IsPlaying() {
		return ErrNoTrack
	}
	return errors.Wrap(c.deps.Sink.Stop(), "stop sink")
}

// ListQueue returns a listing of upcoming requests.
func (c *Controller) ListQueue(n int) Listing {
	return c.queue.ListTop(c.clampLimit(n))
}

// ListHistory returns a listing of completed plays.
func (c *Controller) ListHistory(n int) Listing {
	return c.history.ListTop(c.clampLimit(n))
}

// CurrentSummary returns the summary of the playing track.
func (c *Controller) CurrentSummary() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return "", false
	}
	return c.current.Summary(), true
}

// CurrentTrack returns a copy of the playing track.
func (c *Controller) CurrentTrack() (track.Resolved, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return track.Resolved{}, false
	}
	return *c.current, true
}

// GetState returns the loop state.
func (c *Controller) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// QueueLen returns the number of queued requests.
func (c *Controller) QueueLen() int {
	return c.queue.Len()
}

// Reset drops queued requests and history. Called once on teardown after the
// loop has exited.
func (c *Controller) Reset() {
	c.queue.Clear()
	c.history.Reset()
	c.clearCurrent()
}

func (c *Controller) clampLimit(n int) int {
	if n <= 0 || n > c.config.ListLimit {
		return c.config.ListLimit
	}
	return n
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) clearCurrent() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func (c *Controller) emit(e Event) {
	if c.deps.Notifier == nil {
		return
	}
	e.ChannelID = c.channelID
	e.State = c.GetState()
	e.At = time.Now()
	c.deps.Notifier.Notify(e)
}

// completion bridges the sink callback into the loop. Only the first signal
// is delivered; signals after the loop stopped waiting are dropped.
type completion struct {
	channelID string
	once      sync.Once
	abandoned atomic.Bool
	ch        chan error
}

func newCompletion(channelID string) *completion {
	return &completion{channelID: channelID, ch: make(chan error, 1)}
}

func (d *completion) fire(err error) {
	if d.abandoned.Load() {
		zlog.Debug().Err(err).Msgf("playback: %v: channel=%s", ErrTeardownRace, d.channelID)
		return
	}
	delivered := false
	d.once.Do(func() {
		d.ch <- err
		delivered = true
	})
	if !delivered {
		zlog.Debug().Msgf("playback: duplicate completion ignored: channel=%s", d.channelID)
	}
}

func (d *completion) abandon() {
	d.abandoned.Store(true)
}
