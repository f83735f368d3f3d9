// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"strconv"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/api/rpc"
	"github.com/osa030/guildbox/internal/app/intake"
	"github.com/osa030/guildbox/internal/app/notification"
	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/domain/track"
)

// ListenerService implements the ListenerService RPC.
type ListenerService struct {
	registry      *session.Registry
	intake        *intake.Intake
	notifications *notification.Manager
}

// NewListenerService creates a new ListenerService.
func NewListenerService(registry *session.Registry, in *intake.Intake, notifications *notification.Manager) *ListenerService {
	return &ListenerService{
		registry:      registry,
		intake:        in,
		notifications: notifications,
	}
}

// Ensure ListenerService implements the interface.
var _ rpc.ListenerServiceHandler = (*ListenerService)(nil)

// Enqueue classifies the locator and queues the resulting requests.
func (s *ListenerService) Enqueue(
	ctx context.Context,
	req *connect.Request[rpc.EnqueueRequest],
) (*connect.Response[rpc.EnqueueResponse], error) {
	msg := req.Msg
	if msg.ChannelID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("channel_id is required"))
	}

	requester := track.Requester{ID: msg.RequesterID, Name: msg.RequesterName}
	res, err := s.intake.Parse(ctx, msg.Locator, requester)
	if err != nil {
		return nil, toConnectError(err)
	}

	sess, err := s.registry.Submit(msg.ChannelID, res.Requests...)
	if err != nil {
		return nil, toConnectError(err)
	}

	entries := make([]string, len(res.Requests))
	for i, r := range res.Requests {
		entries[i] = r.Display()
	}
	resp := &rpc.EnqueueResponse{
		Success:   true,
		SessionID: sess.ID(),
		Source:    string(res.Source),
		Count:     len(entries),
		Entries:   entries,
	}
	if res.Collection != nil {
		resp.Collection = res.Collection.Name
		resp.Message = "Queued " + strconv.Itoa(len(entries)) + " tracks from " + res.Collection.Name
	} else {
		resp.Message = "Queued " + entries[0]
	}
	zlog.Info().Msgf("connect: enqueued: channel=%s source=%s count=%d requester=%s",
		msg.ChannelID, res.Source, len(entries), requester.Name)
	return connect.NewResponse(resp), nil
}

// ListQueue lists upcoming requests.
func (s *ListenerService) ListQueue(
	ctx context.Context,
	req *connect.Request[rpc.ListRequest],
) (*connect.Response[rpc.ListResponse], error) {
	sess, err := s.lookup(req.Msg.ChannelID, req.Msg.Limit)
	if err != nil {
		return nil, err
	}
	l := sess.ListQueue(req.Msg.Limit)
	return connect.NewResponse(&rpc.ListResponse{Listing: l, Text: l.String()}), nil
}

// ListHistory lists completed plays.
func (s *ListenerService) ListHistory(
	ctx context.Context,
	req *connect.Request[rpc.ListRequest],
) (*connect.Response[rpc.ListResponse], error) {
	sess, err := s.lookup(req.Msg.ChannelID, req.Msg.Limit)
	if err != nil {
		return nil, err
	}
	l := sess.ListHistory(req.Msg.Limit)
	return connect.NewResponse(&rpc.ListResponse{Listing: l, Text: l.String()}), nil
}

// NowPlaying describes the playing track.
func (s *ListenerService) NowPlaying(
	ctx context.Context,
	req *connect.Request[rpc.NowPlayingRequest],
) (*connect.Response[rpc.NowPlayingResponse], error) {
	sess, err := s.lookup(req.Msg.ChannelID, 0)
	if err != nil {
		return nil, err
	}

	resp := &rpc.NowPlayingResponse{State: sess.Info().State.String()}
	if t, ok := sess.CurrentTrack(); ok {
		resp.Playing = true
		resp.Summary = t.Summary()
		resp.Track = notification.NewTrack(t)
	}
	return connect.NewResponse(resp), nil
}

// SubscribeNotifications sends the current state, then every notification
// for the requested channel until the client goes away.
func (s *ListenerService) SubscribeNotifications(
	ctx context.Context,
	req *connect.Request[rpc.SubscribeNotificationsRequest],
	stream *connect.ServerStream[rpc.Notification],
) error {
	channelID := req.Msg.ChannelID
	adapter := &notificationStreamAdapter{stream: stream}

	// Broadcasts block on the adapter until the initial state is sent.
	adapter.mu.Lock()
	subscriptionID := s.notifications.Subscribe(channelID, adapter)
	err := stream.Send(s.initialState(channelID))
	adapter.mu.Unlock()

	zlog.Debug().Msgf("connect: subscription opened: id=%s channel=%q", subscriptionID, channelID)
	if err == nil {
		<-ctx.Done()
	}

	s.notifications.Unsubscribe(subscriptionID)
	adapter.close()
	zlog.Debug().Msgf("connect: subscription closed: id=%s", subscriptionID)
	return err
}

func (s *ListenerService) initialState(channelID string) *rpc.Notification {
	n := &rpc.Notification{
		SequenceNo: s.notifications.SequenceNo(),
		Type:       rpc.InitialStateType,
		ChannelID:  channelID,
		At:         time.Now(),
	}
	if channelID == "" {
		return n
	}
	if sess, ok := s.registry.Get(channelID); ok {
		n.State = sess.Info().State.String()
		if t, ok := sess.CurrentTrack(); ok {
			n.Track = notification.NewTrack(t)
		}
	}
	return n
}

// lookup validates the list limit and finds the channel's session.
func (s *ListenerService) lookup(channelID string, limit int) (*session.Session, error) {
	if limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("invalid limit: %d", limit))
	}
	return findSession(s.registry, channelID)
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends after the handler returned are rejected.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[rpc.Notification]
	closed bool
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return errors.New("stream closed")
	}
	return a.stream.Send(n)
}

func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}
