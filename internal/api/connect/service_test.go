package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildbox/internal/api/rpc"
	"github.com/osa030/guildbox/internal/app/intake"
	"github.com/osa030/guildbox/internal/app/notification"
	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/domain/playlist"
	"github.com/osa030/guildbox/internal/domain/track"
)

type echoResolver struct{}

func (echoResolver) Resolve(_ context.Context, req track.Request) (track.Resolved, error) {
	return track.Resolved{
		Title:     req.Display(),
		PageURL:   "https://example.com/" + req.Display(),
		StreamURL: "https://cdn.example.com/" + req.Display(),
		Requester: req.RequestedBy(),
	}, nil
}

// holdSink plays until stopped.
type holdSink struct {
	mu         sync.Mutex
	onComplete func(error)
}

func (s *holdSink) Play(_ track.Resolved, onComplete func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = onComplete
	return nil
}

func (s *holdSink) Stop() error {
	s.mu.Lock()
	cb := s.onComplete
	s.onComplete = nil
	s.mu.Unlock()
	if cb != nil {
		cb(nil)
	}
	return nil
}

func (s *holdSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onComplete != nil
}

func (s *holdSink) Close() error { return nil }

type staticExpander struct {
	pl *playlist.Playlist
}

func (e staticExpander) Expand(context.Context, string) (*playlist.Playlist, error) {
	return e.pl, nil
}

type testEnv struct {
	listener *rpc.ListenerServiceClient
	admin    *rpc.AdminServiceClient
	registry *session.Registry
}

func newTestEnv(t *testing.T, expander intake.Expander) *testEnv {
	t.Helper()
	notifications := notification.NewManager()
	reg := session.NewRegistry(playback.Config{IdleTimeout: time.Minute}, func(string) (playback.Deps, error) {
		return playback.Deps{Resolver: echoResolver{}, Sink: &holdSink{}}, nil
	}, notifications)

	interceptors := connect.WithInterceptors(NewLoggingInterceptor())
	mux := http.NewServeMux()
	mux.Handle(rpc.NewListenerServiceHandler(NewListenerService(reg, intake.New(expander), notifications), interceptors))
	mux.Handle(rpc.NewAdminServiceHandler(NewAdminService(reg, notifications, time.Second), interceptors))

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
		srv.Close()
	})

	return &testEnv{
		listener: rpc.NewListenerServiceClient(srv.Client(), srv.URL),
		admin:    rpc.NewAdminServiceClient(srv.Client(), srv.URL),
		registry: reg,
	}
}

func (e *testEnv) enqueue(t *testing.T, channel, locator string) *rpc.EnqueueResponse {
	t.Helper()
	resp, err := e.listener.Enqueue(context.Background(), connect.NewRequest(&rpc.EnqueueRequest{
		ChannelID:     channel,
		Locator:       locator,
		RequesterID:   "1",
		RequesterName: "alice",
	}))
	require.NoError(t, err)
	return resp.Msg
}

func (e *testEnv) waitPlaying(t *testing.T, channel, summary string) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := e.listener.NowPlaying(context.Background(), connect.NewRequest(&rpc.NowPlayingRequest{ChannelID: channel}))
		return err == nil && resp.Msg.Playing && resp.Msg.Summary == summary
	}, 2*time.Second, 10*time.Millisecond)
}

func channelReq(channel string) *connect.Request[rpc.ChannelRequest] {
	return connect.NewRequest(&rpc.ChannelRequest{ChannelID: channel})
}

func TestServices_PlaybackFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	resp := env.enqueue(t, "c1", "song one")
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "search", resp.Source)
	assert.Equal(t, []string{"song one"}, resp.Entries)

	env.waitPlaying(t, "c1", "song one - https://example.com/song one")

	env.enqueue(t, "c1", "song two")
	env.enqueue(t, "c1", "https://youtu.be/abc?t=30")

	queue, err := env.listener.ListQueue(ctx, connect.NewRequest(&rpc.ListRequest{ChannelID: "c1"}))
	require.NoError(t, err)
	assert.Equal(t, 2, queue.Msg.Listing.Total)
	assert.Equal(t, []string{"song two"}, queue.Msg.Listing.Entries)
	assert.Equal(t, "1: song two", queue.Msg.Text)

	shuffled, err := env.admin.Shuffle(ctx, channelReq("c1"))
	require.NoError(t, err)
	assert.False(t, shuffled.Msg.Success)
	assert.Contains(t, shuffled.Msg.Message, "at least 4")

	skipped, err := env.admin.Skip(ctx, channelReq("c1"))
	require.NoError(t, err)
	assert.True(t, skipped.Msg.Success)

	env.waitPlaying(t, "c1", "song two - https://example.com/song two")

	history, err := env.listener.ListHistory(ctx, connect.NewRequest(&rpc.ListRequest{ChannelID: "c1", Limit: 5}))
	require.NoError(t, err)
	assert.Equal(t, 1, history.Msg.Listing.Total)

	_, err = env.admin.Clear(ctx, channelReq("c1"))
	require.NoError(t, err)
	queue, err = env.listener.ListQueue(ctx, connect.NewRequest(&rpc.ListRequest{ChannelID: "c1"}))
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Msg.Listing.Total)

	status, err := env.admin.GetStatus(ctx, connect.NewRequest(&rpc.GetStatusRequest{}))
	require.NoError(t, err)
	require.Equal(t, 1, status.Msg.Count)
	assert.Equal(t, "c1", status.Msg.Sessions[0].ChannelID)
	assert.Equal(t, "song two - https://example.com/song two", status.Msg.Sessions[0].Current)

	stopped, err := env.admin.StopSession(ctx, channelReq("c1"))
	require.NoError(t, err)
	assert.True(t, stopped.Msg.Success)

	_, err = env.listener.NowPlaying(ctx, connect.NewRequest(&rpc.NowPlayingRequest{ChannelID: "c1"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	_, err = env.admin.StopSession(ctx, channelReq("c1"))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestServices_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	enqueue := func(locator string) error {
		_, err := env.listener.Enqueue(ctx, connect.NewRequest(&rpc.EnqueueRequest{ChannelID: "c1", Locator: locator}))
		return err
	}

	tests := []struct {
		name string
		call func() error
		code connect.Code
	}{
		{"unknown channel", func() error {
			_, err := env.listener.ListQueue(ctx, connect.NewRequest(&rpc.ListRequest{ChannelID: "nope"}))
			return err
		}, connect.CodeNotFound},
		{"skip unknown channel", func() error {
			_, err := env.admin.Skip(ctx, channelReq("nope"))
			return err
		}, connect.CodeNotFound},
		{"missing channel", func() error {
			_, err := env.listener.Enqueue(ctx, connect.NewRequest(&rpc.EnqueueRequest{Locator: "song"}))
			return err
		}, connect.CodeInvalidArgument},
		{"empty locator", func() error { return enqueue(" ") }, connect.CodeInvalidArgument},
		{"unsupported host", func() error { return enqueue("https://vimeo.com/1") }, connect.CodeInvalidArgument},
		{"spotify without expander", func() error { return enqueue("https://open.spotify.com/track/x") }, connect.CodeUnimplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
	assert.Equal(t, 0, env.registry.Len())
}

func TestServices_NegativeLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.enqueue(t, "c1", "song")

	_, err := env.listener.ListQueue(context.Background(), connect.NewRequest(&rpc.ListRequest{ChannelID: "c1", Limit: -1}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestServices_EmptyCollectionIsRejected(t *testing.T) {
	env := newTestEnv(t, staticExpander{pl: &playlist.Playlist{Name: "Empty", Kind: playlist.KindPlaylist}})

	_, err := env.listener.Enqueue(context.Background(), connect.NewRequest(&rpc.EnqueueRequest{
		ChannelID: "c1",
		Locator:   "https://open.spotify.com/playlist/empty",
	}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.Equal(t, 0, env.registry.Len())
}

func TestServices_EnqueueCollection(t *testing.T) {
	env := newTestEnv(t, staticExpander{pl: &playlist.Playlist{
		Name: "Mix",
		Kind: playlist.KindPlaylist,
		Tracks: []track.Prepared{
			{Title: "One", Locator: "https://www.youtube.com/watch?v=1"},
			{Title: "Two", Locator: "https://www.youtube.com/watch?v=2"},
		},
	}})

	resp := env.enqueue(t, "c1", "https://open.spotify.com/playlist/mix")
	assert.Equal(t, "spotify", resp.Source)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "Mix", resp.Collection)
	assert.Equal(t, "Queued 2 tracks from Mix", resp.Message)
}

func TestServices_SubscribeNotifications(t *testing.T) {
	env := newTestEnv(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := env.listener.SubscribeNotifications(ctx, connect.NewRequest(&rpc.SubscribeNotificationsRequest{ChannelID: "c1"}))
	require.NoError(t, err)

	received := make(chan rpc.Notification, 16)
	go func() {
		for stream.Receive() {
			received <- *stream.Msg()
		}
		close(received)
	}()

	next := func() rpc.Notification {
		select {
		case n := <-received:
			return n
		case <-time.After(2 * time.Second):
			t.Fatal("no notification received")
			return rpc.Notification{}
		}
	}

	first := next()
	assert.Equal(t, rpc.InitialStateType, first.Type)
	assert.Equal(t, "c1", first.ChannelID)

	env.enqueue(t, "c1", "song one")
	started := next()
	assert.Equal(t, "track_started", started.Type)
	require.NotNil(t, started.Track)
	assert.Equal(t, "song one", started.Track.Title)
	assert.Equal(t, "alice", started.Track.RequestedBy)
	assert.Greater(t, started.SequenceNo, first.SequenceNo)

	// Other channels are filtered out.
	env.enqueue(t, "c2", "elsewhere")
	_, err = env.admin.Skip(context.Background(), channelReq("c1"))
	require.NoError(t, err)
	ended := next()
	assert.Equal(t, "track_ended", ended.Type)
	assert.Equal(t, "c1", ended.ChannelID)
}
