// Package session provides per-channel playback sessions and their registry.
package session

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/app/session/state"
	"github.com/osa030/guildbox/internal/domain/track"
	zlog "github.com/rs/zerolog/log"
)

var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrRegistryClosed = errors.New("session registry is closed")
	ErrNotFound       = errors.New("no session for channel")
)

// Info is a read-only view of a session.
type Info struct {
	SessionID string
	ChannelID string
	Phase     state.Phase
	State     playback.State
	QueueLen  int
	Current   string // Summary of the playing track, empty when idle
	CreatedAt time.Time
}

// Session is the per-channel aggregate of queue, loop and history.
type Session struct {
	channelID string

	state    *state.Manager
	playback *playback.Controller
	sink     playback.AudioSink
	notifier playback.Notifier

	// release removes the session from its registry.
	release func(*Session)

	// idleClaimed is set by the loop goroutine when the idle decision began
	// teardown; only that goroutine reads it.
	idleClaimed bool

	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	done     chan struct{}
}

func newSession(channelID string, config playback.Config, deps playback.Deps, release func(*Session)) (*Session, error) {
	ctrl, err := playback.NewController(channelID, config, deps)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create playback controller for channel %s", channelID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		channelID: channelID,
		state:     state.New(uuid.New().String(), channelID),
		playback:  ctrl,
		sink:      deps.Sink,
		notifier:  deps.Notifier,
		release:   release,
		ctx:       ctx,
		cancel:    cancel,
		loopDone:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	// Closing admission in the same critical section as the idle decision
	// means a request is either dequeued by this loop or refused.
	ctrl.OnIdle(func() {
		s.idleClaimed = s.state.BeginTeardown(state.ReasonIdleTimeout)
	})
	return s, nil
}

func (s *Session) start() {
	zlog.Info().Msgf("session: started: channel=%s session_id=%s", s.channelID, s.ID())
	go s.run()
}

func (s *Session) run() {
	err := s.playback.Run(s.ctx)
	close(s.loopDone)

	if s.idleClaimed {
		s.finishTeardown(state.ReasonIdleTimeout)
		return
	}

	reason := state.ReasonLoopError
	switch {
	case errors.Is(err, playback.ErrIdleTimeout):
		reason = state.ReasonIdleTimeout
	case errors.Is(err, context.Canceled):
		// Teardown already started by whoever cancelled the context.
		reason = state.ReasonStop
	default:
		zlog.Error().Err(err).Msgf("session: playback loop failed: channel=%s", s.channelID)
	}
	s.teardown(reason)
}

// teardown runs at most once per session regardless of how many signals
// arrive (explicit stop, idle timeout, host shutdown).
func (s *Session) teardown(reason state.Reason) {
	if !s.state.BeginTeardown(reason) {
		return
	}
	s.finishTeardown(reason)
}

// finishTeardown releases everything once BeginTeardown has been won.
func (s *Session) finishTeardown(reason state.Reason) {
	zlog.Info().Msgf("session: tearing down: channel=%s session_id=%s reason=%s", s.channelID, s.ID(), reason)

	s.cancel()
	<-s.loopDone

	if s.sink.IsPlaying() {
		if err := s.sink.Stop(); err != nil {
			zlog.Warn().Err(err).Msgf("session: failed to stop sink: channel=%s", s.channelID)
		}
	}
	if err := s.sink.Close(); err != nil {
		zlog.Warn().Err(err).Msgf("session: failed to close sink: channel=%s", s.channelID)
	}

	s.playback.Reset()
	if s.release != nil {
		s.release(s)
	}
	s.state.Terminate()

	if s.notifier != nil {
		s.notifier.Notify(playback.Event{
			Type:      playback.EventSessionStopped,
			ChannelID: s.channelID,
			State:     playback.StateStopped,
			At:        time.Now(),
		})
	}
	close(s.done)
}

// Stop tears the session down and waits until teardown has finished.
func (s *Session) Stop(ctx context.Context) error {
	go s.teardown(state.ReasonStop)
	return s.wait(ctx)
}

func (s *Session) shutdown(ctx context.Context) error {
	go s.teardown(state.ReasonHostShutdown)
	return s.wait(ctx)
}

func (s *Session) wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "waiting for session %s to stop", s.channelID)
	}
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.state.GetSessionID()
}

// ChannelID returns the channel the session plays into.
func (s *Session) ChannelID() string {
	return s.channelID
}

// Enqueue appends requests to the queue. It returns ErrSessionClosed once
// teardown has begun, including when the loop has just decided to idle out.
func (s *Session) Enqueue(reqs ...track.Request) error {
	if !s.playback.EnqueueIf(s.state.IsActive, reqs...) {
		return ErrSessionClosed
	}
	zlog.Debug().Msgf("session: enqueued: channel=%s count=%d queue=%d", s.channelID, len(reqs), s.playback.QueueLen())
	return nil
}

// Clear empties the queue.
func (s *Session) Clear() error {
	if !s.state.IsActive() {
		return ErrSessionClosed
	}
	s.playback.Clear()
	return nil
}

// Shuffle randomizes the queue order.
func (s *Session) Shuffle() error {
	if !s.state.IsActive() {
		return ErrSessionClosed
	}
	return s.playback.Shuffle()
}

// Skip ends the current track early.
func (s *Session) Skip() error {
	if !s.state.IsActive() {
		return ErrSessionClosed
	}
	return s.playback.Skip()
}

// ListQueue returns a listing of upcoming requests.
func (s *Session) ListQueue(n int) playback.Listing {
	return s.playback.ListQueue(n)
}

// ListHistory returns a listing of completed plays.
func (s *Session) ListHistory(n int) playback.Listing {
	return s.playback.ListHistory(n)
}

// CurrentSummary returns the summary of the playing track.
func (s *Session) CurrentSummary() (string, bool) {
	return s.playback.CurrentSummary()
}

// CurrentTrack returns the playing track.
func (s *Session) CurrentTrack() (track.Resolved, bool) {
	return s.playback.CurrentTrack()
}

// Info returns a read-only view of the session.
func (s *Session) Info() Info {
	snap := s.state.Snapshot()
	current, _ := s.playback.CurrentSummary()
	return Info{
		SessionID: snap.SessionID,
		ChannelID: snap.ChannelID,
		Phase:     snap.Phase,
		State:     s.playback.GetState(),
		QueueLen:  s.playback.QueueLen(),
		Current:   current,
		CreatedAt: snap.CreatedAt,
	}
}
