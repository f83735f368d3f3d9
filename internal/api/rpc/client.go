package rpc

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// ListenerServiceClient calls the ListenerService.
type ListenerServiceClient struct {
	enqueue     *connect.Client[EnqueueRequest, EnqueueResponse]
	listQueue   *connect.Client[ListRequest, ListResponse]
	listHistory *connect.Client[ListRequest, ListResponse]
	nowPlaying  *connect.Client[NowPlayingRequest, NowPlayingResponse]
	subscribe   *connect.Client[SubscribeNotificationsRequest, Notification]
}

// NewListenerServiceClient constructs a client for the service at baseURL,
// e.g. http://localhost:8080.
func NewListenerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ListenerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &ListenerServiceClient{
		enqueue:     connect.NewClient[EnqueueRequest, EnqueueResponse](httpClient, baseURL+ListenerServiceEnqueueProcedure, opts...),
		listQueue:   connect.NewClient[ListRequest, ListResponse](httpClient, baseURL+ListenerServiceListQueueProcedure, opts...),
		listHistory: connect.NewClient[ListRequest, ListResponse](httpClient, baseURL+ListenerServiceListHistoryProcedure, opts...),
		nowPlaying:  connect.NewClient[NowPlayingRequest, NowPlayingResponse](httpClient, baseURL+ListenerServiceNowPlayingProcedure, opts...),
		subscribe:   connect.NewClient[SubscribeNotificationsRequest, Notification](httpClient, baseURL+ListenerServiceSubscribeNotificationsProcedure, opts...),
	}
}

// Enqueue calls guildbox.v1.ListenerService.Enqueue.
func (c *ListenerServiceClient) Enqueue(ctx context.Context, req *connect.Request[EnqueueRequest]) (*connect.Response[EnqueueResponse], error) {
	return c.enqueue.CallUnary(ctx, req)
}

// ListQueue calls guildbox.v1.ListenerService.ListQueue.
func (c *ListenerServiceClient) ListQueue(ctx context.Context, req *connect.Request[ListRequest]) (*connect.Response[ListResponse], error) {
	return c.listQueue.CallUnary(ctx, req)
}

// ListHistory calls guildbox.v1.ListenerService.ListHistory.
func (c *ListenerServiceClient) ListHistory(ctx context.Context, req *connect.Request[ListRequest]) (*connect.Response[ListResponse], error) {
	return c.listHistory.CallUnary(ctx, req)
}

// NowPlaying calls guildbox.v1.ListenerService.NowPlaying.
func (c *ListenerServiceClient) NowPlaying(ctx context.Context, req *connect.Request[NowPlayingRequest]) (*connect.Response[NowPlayingResponse], error) {
	return c.nowPlaying.CallUnary(ctx, req)
}

// SubscribeNotifications calls guildbox.v1.ListenerService.SubscribeNotifications.
func (c *ListenerServiceClient) SubscribeNotifications(ctx context.Context, req *connect.Request[SubscribeNotificationsRequest]) (*connect.ServerStreamForClient[Notification], error) {
	return c.subscribe.CallServerStream(ctx, req)
}

// AdminServiceClient calls the AdminService.
type AdminServiceClient struct {
	getStatus   *connect.Client[GetStatusRequest, GetStatusResponse]
	clear       *connect.Client[ChannelRequest, ActionResponse]
	shuffle     *connect.Client[ChannelRequest, ActionResponse]
	skip        *connect.Client[ChannelRequest, ActionResponse]
	stopSession *connect.Client[ChannelRequest, ActionResponse]
}

// NewAdminServiceClient constructs a client for the service at baseURL.
func NewAdminServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &AdminServiceClient{
		getStatus:   connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+AdminServiceGetStatusProcedure, opts...),
		clear:       connect.NewClient[ChannelRequest, ActionResponse](httpClient, baseURL+AdminServiceClearProcedure, opts...),
		shuffle:     connect.NewClient[ChannelRequest, ActionResponse](httpClient, baseURL+AdminServiceShuffleProcedure, opts...),
		skip:        connect.NewClient[ChannelRequest, ActionResponse](httpClient, baseURL+AdminServiceSkipProcedure, opts...),
		stopSession: connect.NewClient[ChannelRequest, ActionResponse](httpClient, baseURL+AdminServiceStopSessionProcedure, opts...),
	}
}

// GetStatus calls guildbox.v1.AdminService.GetStatus.
func (c *AdminServiceClient) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

// Clear calls guildbox.v1.AdminService.Clear.
func (c *AdminServiceClient) Clear(ctx context.Context, req *connect.Request[ChannelRequest]) (*connect.Response[ActionResponse], error) {
	return c.clear.CallUnary(ctx, req)
}

// Shuffle calls guildbox.v1.AdminService.Shuffle.
func (c *AdminServiceClient) Shuffle(ctx context.Context, req *connect.Request[ChannelRequest]) (*connect.Response[ActionResponse], error) {
	return c.shuffle.CallUnary(ctx, req)
}

// Skip calls guildbox.v1.AdminService.Skip.
func (c *AdminServiceClient) Skip(ctx context.Context, req *connect.Request[ChannelRequest]) (*connect.Response[ActionResponse], error) {
	return c.skip.CallUnary(ctx, req)
}

// StopSession calls guildbox.v1.AdminService.StopSession.
func (c *AdminServiceClient) StopSession(ctx context.Context, req *connect.Request[ChannelRequest]) (*connect.Response[ActionResponse], error) {
	return c.stopSession.CallUnary(ctx, req)
}
