package rpc

import (
	"time"

	"github.com/osa030/guildbox/internal/app/notification"
	"github.com/osa030/guildbox/internal/app/playback"
)

// InitialStateType is the type of the first notification on a subscription.
const InitialStateType = "initial_state"

// Notification is the message carried by SubscribeNotifications.
type Notification = notification.Notification

// EnqueueRequest asks to queue a locator in a channel.
type EnqueueRequest struct {
	ChannelID     string `json:"channel_id"`
	Locator       string `json:"locator"`
	RequesterID   string `json:"requester_id,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
}

// EnqueueResponse reports what was queued.
type EnqueueResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	SessionID  string   `json:"session_id"`
	Source     string   `json:"source"`
	Count      int      `json:"count"`
	Entries    []string `json:"entries"`
	Collection string   `json:"collection,omitempty"`
}

// ListRequest asks for a queue or history listing. Zero limit selects the
// server default.
type ListRequest struct {
	ChannelID string `json:"channel_id"`
	Limit     int    `json:"limit,omitempty"`
}

// ListResponse carries a listing and its rendered text.
type ListResponse struct {
	Listing playback.Listing `json:"listing"`
	Text    string           `json:"text"`
}

// NowPlayingRequest asks what a channel is playing.
type NowPlayingRequest struct {
	ChannelID string `json:"channel_id"`
}

// NowPlayingResponse describes the playing track.
type NowPlayingResponse struct {
	Playing bool                `json:"playing"`
	Summary string              `json:"summary,omitempty"`
	Track   *notification.Track `json:"track,omitempty"`
	State   string              `json:"state"`
}

// SubscribeNotificationsRequest selects a channel; empty follows every channel.
type SubscribeNotificationsRequest struct {
	ChannelID string `json:"channel_id,omitempty"`
}

// ChannelRequest targets one channel's session.
type ChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

// ActionResponse is returned by admin actions.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GetStatusRequest has no fields.
type GetStatusRequest struct{}

// SessionInfo describes one live session.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	ChannelID string    `json:"channel_id"`
	Phase     string    `json:"phase"`
	State     string    `json:"state"`
	QueueLen  int       `json:"queue_len"`
	Current   string    `json:"current,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetStatusResponse lists live sessions.
type GetStatusResponse struct {
	Count       int           `json:"count"`
	Subscribers int           `json:"subscribers"`
	Sessions    []SessionInfo `json:"sessions"`
}
