package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/guildbox/internal/api/rpc"
	"github.com/osa030/guildbox/internal/app/notification"
	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/app/session"
)

// AdminService implements the AdminService RPC.
type AdminService struct {
	registry      *session.Registry
	notifications *notification.Manager
	stopTimeout   time.Duration
}

// NewAdminService creates a new AdminService.
func NewAdminService(registry *session.Registry, notifications *notification.Manager, stopTimeout time.Duration) *AdminService {
	return &AdminService{
		registry:      registry,
		notifications: notifications,
		stopTimeout:   stopTimeout,
	}
}

// Ensure AdminService implements the interface.
var _ rpc.AdminServiceHandler = (*AdminService)(nil)

// GetStatus lists live sessions.
func (s *AdminService) GetStatus(
	ctx context.Context,
	req *connect.Request[rpc.GetStatusRequest],
) (*connect.Response[rpc.GetStatusResponse], error) {
	infos := s.registry.List()
	resp := &rpc.GetStatusResponse{
		Count:       len(infos),
		Subscribers: s.notifications.SubscriberCount(),
		Sessions:    make([]rpc.SessionInfo, 0, len(infos)),
	}
	for _, info := range infos {
		resp.Sessions = append(resp.Sessions, rpc.SessionInfo{
			SessionID: info.SessionID,
			ChannelID: info.ChannelID,
			Phase:     info.Phase.String(),
			State:     info.State.String(),
			QueueLen:  info.QueueLen,
			Current:   info.Current,
			CreatedAt: info.CreatedAt,
		})
	}
	return connect.NewResponse(resp), nil
}

// Clear empties a channel's queue.
func (s *AdminService) Clear(
	ctx context.Context,
	req *connect.Request[rpc.ChannelRequest],
) (*connect.Response[rpc.ActionResponse], error) {
	return s.act(req.Msg.ChannelID, "Queue cleared", (*session.Session).Clear)
}

// Shuffle randomizes a channel's queue.
func (s *AdminService) Shuffle(
	ctx context.Context,
	req *connect.Request[rpc.ChannelRequest],
) (*connect.Response[rpc.ActionResponse], error) {
	return s.act(req.Msg.ChannelID, "Queue shuffled", (*session.Session).Shuffle)
}

// Skip skips the current track.
func (s *AdminService) Skip(
	ctx context.Context,
	req *connect.Request[rpc.ChannelRequest],
) (*connect.Response[rpc.ActionResponse], error) {
	return s.act(req.Msg.ChannelID, "Track skipped", (*session.Session).Skip)
}

// StopSession tears a channel's session down.
func (s *AdminService) StopSession(
	ctx context.Context,
	req *connect.Request[rpc.ChannelRequest],
) (*connect.Response[rpc.ActionResponse], error) {
	ctx, cancel := context.WithTimeout(ctx, s.stopTimeout)
	defer cancel()

	found, err := s.registry.Remove(ctx, req.Msg.ChannelID)
	if !found {
		return nil, toConnectError(errors.Wrapf(session.ErrNotFound, "%s", req.Msg.ChannelID))
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.ActionResponse{
		Success: true,
		Message: "Session stopped",
	}), nil
}

// act runs fn on the channel's session. Refused queue operations are
// reported in the response rather than as RPC errors.
func (s *AdminService) act(channelID, done string, fn func(*session.Session) error) (*connect.Response[rpc.ActionResponse], error) {
	sess, err := findSession(s.registry, channelID)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		if errors.Is(err, playback.ErrQueueRejected) || errors.Is(err, playback.ErrNoTrack) {
			return connect.NewResponse(&rpc.ActionResponse{
				Success: false,
				Message: err.Error(),
			}), nil
		}
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&rpc.ActionResponse{
		Success: true,
		Message: done,
	}), nil
}
