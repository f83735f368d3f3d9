package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/app/intake"
	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/app/session"
)

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, playback.ErrQueueRejected),
		errors.Is(err, playback.ErrNoTrack),
		errors.Is(err, session.ErrSessionClosed):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, session.ErrRegistryClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, intake.ErrEmptyLocator),
		errors.Is(err, intake.ErrUnsupportedHost),
		errors.Is(err, intake.ErrEmptyCollection):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, intake.ErrExpansionUnavailable):
		return connect.NewError(connect.CodeUnimplemented, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		zlog.Warn().Err(err).Msg("connect: request failed")
		return connect.NewError(connect.CodeInternal, err)
	}
}

func findSession(registry *session.Registry, channelID string) (*session.Session, error) {
	if channelID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("channel_id is required"))
	}
	sess, ok := registry.Get(channelID)
	if !ok {
		return nil, toConnectError(errors.Wrapf(session.ErrNotFound, "%s", channelID))
	}
	return sess, nil
}
