package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/app/session/state"
	"github.com/osa030/guildbox/internal/domain/track"
)

type echoResolver struct{}

func (echoResolver) Resolve(_ context.Context, req track.Request) (track.Resolved, error) {
	return track.Resolved{Title: req.Display(), PageURL: "https://example.com/" + req.Display()}, nil
}

type stubSink struct {
	mu         sync.Mutex
	playing    bool
	onComplete func(error)
	closes     int
	started    chan string
}

func newStubSink() *stubSink {
	return &stubSink{started: make(chan string, 16)}
}

func (s *stubSink) Play(t track.Resolved, onComplete func(error)) error {
	s.mu.Lock()
	s.playing = true
	s.onComplete = onComplete
	s.mu.Unlock()
	s.started <- t.Title
	return nil
}

func (s *stubSink) Stop() error {
	s.mu.Lock()
	cb := s.onComplete
	s.onComplete = nil
	s.playing = false
	s.mu.Unlock()
	if cb != nil {
		cb(nil)
	}
	return nil
}

func (s *stubSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *stubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *stubSink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type eventLog struct {
	mu     sync.Mutex
	events []playback.Event
}

func (l *eventLog) Notify(e playback.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(t playback.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	reg   *Registry
	log   *eventLog
	mu    sync.Mutex
	sinks map[string][]*stubSink
}

func newFixture(idle time.Duration) *fixture {
	f := &fixture{log: &eventLog{}, sinks: make(map[string][]*stubSink)}
	f.reg = NewRegistry(playback.Config{IdleTimeout: idle}, func(channelID string) (playback.Deps, error) {
		sink := newStubSink()
		f.mu.Lock()
		f.sinks[channelID] = append(f.sinks[channelID], sink)
		f.mu.Unlock()
		return playback.Deps{Resolver: echoResolver{}, Sink: sink}, nil
	}, f.log)
	return f
}

func (f *fixture) sink(channelID string, i int) *stubSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sinks[channelID][i]
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session was not torn down")
	}
}

func TestRegistry_GetOrCreateReturnsSameSession(t *testing.T) {
	f := newFixture(time.Minute)
	t.Cleanup(func() { _ = f.reg.Shutdown(context.Background()) })

	var wg sync.WaitGroup
	got := make([]*Session, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.reg.GetOrCreate("chan-a")
			assert.NoError(t, err)
			got[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, 1, f.reg.Len())

	other, err := f.reg.GetOrCreate("chan-b")
	require.NoError(t, err)
	assert.NotSame(t, got[0], other)
	assert.Equal(t, 2, f.reg.Len())
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := NewRegistry(playback.Config{}, func(string) (playback.Deps, error) {
		return playback.Deps{}, errors.New("no voice connection")
	}, nil)

	_, err := reg.GetOrCreate("chan")
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestSession_IdleTimeoutTearsDownOnce(t *testing.T) {
	f := newFixture(30 * time.Millisecond)

	s, err := f.reg.GetOrCreate("chan")
	require.NoError(t, err)
	waitDone(t, s)

	assert.Equal(t, 0, f.reg.Len())
	assert.Equal(t, 1, f.sink("chan", 0).closeCount())
	assert.Equal(t, 1, f.log.count(playback.EventIdleTimeout))
	assert.Equal(t, 1, f.log.count(playback.EventSessionStopped))
	assert.Equal(t, state.ReasonIdleTimeout, s.state.GetReason())
	assert.Equal(t, state.PhaseTerminated, s.Info().Phase)

	assert.ErrorIs(t, s.Enqueue(track.Search{Query: "late"}), ErrSessionClosed)
}

func TestSession_StopWhilePlaying(t *testing.T) {
	f := newFixture(time.Minute)

	s, err := f.reg.Submit("chan", track.Search{Query: "a"}, track.Search{Query: "b"})
	require.NoError(t, err)

	sink := f.sink("chan", 0)
	select {
	case title := <-sink.started:
		assert.Equal(t, "a", title)
	case <-time.After(2 * time.Second):
		t.Fatal("track did not start")
	}

	require.NoError(t, s.Stop(context.Background()))

	assert.False(t, sink.IsPlaying())
	assert.Equal(t, 1, sink.closeCount())
	assert.Equal(t, 0, f.reg.Len())
	assert.Equal(t, 0, f.log.count(playback.EventTrackEnded))
	assert.Equal(t, 1, f.log.count(playback.EventSessionStopped))
	assert.Equal(t, 0, s.ListQueue(10).Total)
	assert.Equal(t, 0, s.ListHistory(10).Total)
}

func TestSession_ConcurrentTeardownSignals(t *testing.T) {
	f := newFixture(time.Minute)

	s, err := f.reg.GetOrCreate("chan")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Stop(context.Background())
		}()
		go func() {
			defer wg.Done()
			_, _ = f.reg.Remove(context.Background(), "chan")
		}()
	}
	wg.Wait()
	waitDone(t, s)

	assert.Equal(t, 1, f.sink("chan", 0).closeCount())
	assert.Equal(t, 1, f.log.count(playback.EventSessionStopped))
}

func TestRegistry_RecreatesAfterTeardown(t *testing.T) {
	f := newFixture(time.Minute)
	t.Cleanup(func() { _ = f.reg.Shutdown(context.Background()) })

	first, err := f.reg.GetOrCreate("chan")
	require.NoError(t, err)

	found, err := f.reg.Remove(context.Background(), "chan")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = f.reg.Remove(context.Background(), "chan")
	require.NoError(t, err)
	assert.False(t, found)

	second, err := f.reg.Submit("chan", track.Search{Query: "x"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 1, f.reg.Len())
}

func TestRegistry_Shutdown(t *testing.T) {
	f := newFixture(time.Minute)

	a, err := f.reg.GetOrCreate("a")
	require.NoError(t, err)
	b, err := f.reg.GetOrCreate("b")
	require.NoError(t, err)

	infos := f.reg.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].ChannelID)

	require.NoError(t, f.reg.Shutdown(context.Background()))
	waitDone(t, a)
	waitDone(t, b)

	assert.Equal(t, 0, f.reg.Len())
	assert.Equal(t, state.ReasonHostShutdown, a.state.GetReason())

	_, err = f.reg.GetOrCreate("c")
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestSession_Operations(t *testing.T) {
	f := newFixture(time.Minute)
	t.Cleanup(func() { _ = f.reg.Shutdown(context.Background()) })

	s, err := f.reg.GetOrCreate("chan")
	require.NoError(t, err)

	_, ok := s.CurrentSummary()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Skip(), playback.ErrNoTrack)

	require.NoError(t, s.Enqueue(track.Search{Query: "one"}))
	sink := f.sink("chan", 0)
	<-sink.started

	summary, ok := s.CurrentSummary()
	require.True(t, ok)
	assert.Equal(t, "one - https://example.com/one", summary)

	require.NoError(t, s.Enqueue(track.Search{Query: "two"}, track.Search{Query: "three"}))
	err = s.Shuffle()
	assert.True(t, errors.Is(err, playback.ErrQueueRejected))

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Info().QueueLen)

	require.NoError(t, s.Skip())
	require.Eventually(t, func() bool {
		return s.ListHistory(10).Total == 1
	}, time.Second, 5*time.Millisecond)
}

// gatedLog holds the loop inside the idle-timeout notification until release
// is closed, keeping the session in its teardown window.
type gatedLog struct {
	eventLog
	idle    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedLog) Notify(e playback.Event) {
	g.eventLog.Notify(e)
	if e.Type == playback.EventIdleTimeout {
		g.once.Do(func() {
			close(g.idle)
			<-g.release
		})
	}
}

func TestRegistry_SubmitDuringIdleTeardownStartsFreshSession(t *testing.T) {
	log := &gatedLog{idle: make(chan struct{}), release: make(chan struct{})}
	sinks := make(chan *stubSink, 4)
	reg := NewRegistry(playback.Config{IdleTimeout: 20 * time.Millisecond}, func(string) (playback.Deps, error) {
		sink := newStubSink()
		sinks <- sink
		return playback.Deps{Resolver: echoResolver{}, Sink: sink}, nil
	}, log)
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })

	first, err := reg.GetOrCreate("chan")
	require.NoError(t, err)
	<-sinks

	select {
	case <-log.idle:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not idle out")
	}

	// The dying session must refuse the request instead of swallowing it.
	assert.ErrorIs(t, first.Enqueue(track.Search{Query: "late"}), ErrSessionClosed)

	type result struct {
		s   *Session
		err error
	}
	submitted := make(chan result, 1)
	go func() {
		s, err := reg.Submit("chan", track.Search{Query: "late"})
		submitted <- result{s, err}
	}()
	close(log.release)

	var res result
	select {
	case res = <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return")
	}
	require.NoError(t, res.err)
	assert.NotEqual(t, first.ID(), res.s.ID())
	waitDone(t, first)

	second := <-sinks
	select {
	case title := <-second.started:
		assert.Equal(t, "late", title)
	case <-time.After(2 * time.Second):
		t.Fatal("late request was dropped")
	}
	assert.Equal(t, 1, log.count(playback.EventIdleTimeout))
}

func TestRegistry_SubmitRacingStopIsNeverLost(t *testing.T) {
	f := newFixture(time.Minute)
	t.Cleanup(func() { _ = f.reg.Shutdown(context.Background()) })

	for i := 0; i < 20; i++ {
		s, err := f.reg.GetOrCreate("chan")
		require.NoError(t, err)

		var (
			wg  sync.WaitGroup
			got *Session
			sub error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Stop(context.Background())
		}()
		go func() {
			defer wg.Done()
			got, sub = f.reg.Submit("chan", track.Search{Query: "x"})
		}()
		wg.Wait()

		if sub != nil {
			assert.ErrorIs(t, sub, ErrSessionClosed)
			continue
		}
		// Accepted by the stopped session means it was cleared with it;
		// otherwise it must sit in a live replacement.
		if got == s {
			assert.Equal(t, state.PhaseTerminated, s.Info().Phase)
			continue
		}
		assert.NotEqual(t, s.ID(), got.ID())
		assert.Equal(t, state.PhaseActive, got.Info().Phase)
		require.NoError(t, got.Stop(context.Background()))
	}
}
