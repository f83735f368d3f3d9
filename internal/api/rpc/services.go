package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	// ListenerServiceName is the fully-qualified name of the ListenerService.
	ListenerServiceName = "guildbox.v1.ListenerService"
	// AdminServiceName is the fully-qualified name of the AdminService.
	AdminServiceName = "guildbox.v1.AdminService"
)

// Procedure paths.
const (
	ListenerServiceEnqueueProcedure                = "/guildbox.v1.ListenerService/Enqueue"
	ListenerServiceListQueueProcedure              = "/guildbox.v1.ListenerService/ListQueue"
	ListenerServiceListHistoryProcedure            = "/guildbox.v1.ListenerService/ListHistory"
	ListenerServiceNowPlayingProcedure             = "/guildbox.v1.ListenerService/NowPlaying"
	ListenerServiceSubscribeNotificationsProcedure = "/guildbox.v1.ListenerService/SubscribeNotifications"

	AdminServiceGetStatusProcedure   = "/guildbox.v1.AdminService/GetStatus"
	AdminServiceClearProcedure       = "/guildbox.v1.AdminService/Clear"
	AdminServiceShuffleProcedure     = "/guildbox.v1.AdminService/Shuffle"
	AdminServiceSkipProcedure        = "/guildbox.v1.AdminService/Skip"
	AdminServiceStopSessionProcedure = "/guildbox.v1.AdminService/StopSession"
)

// ListenerServiceHandler is implemented by the listener-facing service.
type ListenerServiceHandler interface {
	Enqueue(context.Context, *connect.Request[EnqueueRequest]) (*connect.Response[EnqueueResponse], error)
	ListQueue(context.Context, *connect.Request[ListRequest]) (*connect.Response[ListResponse], error)
	ListHistory(context.Context, *connect.Request[ListRequest]) (*connect.Response[ListResponse], error)
	NowPlaying(context.Context, *connect.Request[NowPlayingRequest]) (*connect.Response[NowPlayingResponse], error)
	SubscribeNotifications(context.Context, *connect.Request[SubscribeNotificationsRequest], *connect.ServerStream[Notification]) error
}

// AdminServiceHandler is implemented by the admin service.
type AdminServiceHandler interface {
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error)
	Clear(context.Context, *connect.Request[ChannelRequest]) (*connect.Response[ActionResponse], error)
	Shuffle(context.Context, *connect.Request[ChannelRequest]) (*connect.Response[ActionResponse], error)
	Skip(context.Context, *connect.Request[ChannelRequest]) (*connect.Response[ActionResponse], error)
	StopSession(context.Context, *connect.Request[ChannelRequest]) (*connect.Response[ActionResponse], error)
}

// NewListenerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewListenerServiceHandler(svc ListenerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	routes := map[string]http.Handler{
		ListenerServiceEnqueueProcedure:                connect.NewUnaryHandler(ListenerServiceEnqueueProcedure, svc.Enqueue, opts...),
		ListenerServiceListQueueProcedure:              connect.NewUnaryHandler(ListenerServiceListQueueProcedure, svc.ListQueue, opts...),
		ListenerServiceListHistoryProcedure:            connect.NewUnaryHandler(ListenerServiceListHistoryProcedure, svc.ListHistory, opts...),
		ListenerServiceNowPlayingProcedure:             connect.NewUnaryHandler(ListenerServiceNowPlayingProcedure, svc.NowPlaying, opts...),
		ListenerServiceSubscribeNotificationsProcedure: connect.NewServerStreamHandler(ListenerServiceSubscribeNotificationsProcedure, svc.SubscribeNotifications, opts...),
	}
	return "/" + ListenerServiceName + "/", route(routes)
}

// NewAdminServiceHandler builds an HTTP handler from the service
// implementation.
func NewAdminServiceHandler(svc AdminServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	routes := map[string]http.Handler{
		AdminServiceGetStatusProcedure:   connect.NewUnaryHandler(AdminServiceGetStatusProcedure, svc.GetStatus, opts...),
		AdminServiceClearProcedure:       connect.NewUnaryHandler(AdminServiceClearProcedure, svc.Clear, opts...),
		AdminServiceShuffleProcedure:     connect.NewUnaryHandler(AdminServiceShuffleProcedure, svc.Shuffle, opts...),
		AdminServiceSkipProcedure:        connect.NewUnaryHandler(AdminServiceSkipProcedure, svc.Skip, opts...),
		AdminServiceStopSessionProcedure: connect.NewUnaryHandler(AdminServiceStopSessionProcedure, svc.StopSession, opts...),
	}
	return "/" + AdminServiceName + "/", route(routes)
}

func route(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
