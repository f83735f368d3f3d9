// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/domain/track"
)

// sendTimeout bounds a single subscriber send.
const sendTimeout = 500 * time.Millisecond

// Track is the wire view of a resolved track.
type Track struct {
	Title       string        `json:"title"`
	PageURL     string        `json:"page_url"`
	Duration    time.Duration `json:"duration"`
	Uploader    string        `json:"uploader,omitempty"`
	Thumbnail   string        `json:"thumbnail,omitempty"`
	RequestedBy string        `json:"requested_by,omitempty"`
}

// Notification is a sequenced playback event.
type Notification struct {
	SequenceNo uint64    `json:"sequence_no"`
	Type       string    `json:"type"`
	ChannelID  string    `json:"channel_id"`
	Request    string    `json:"request,omitempty"`
	Track      *Track    `json:"track,omitempty"`
	Error      string    `json:"error,omitempty"`
	State      string    `json:"state"`
	At         time.Time `json:"at"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id        string
	channelID string // Empty receives every channel
	stream    Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// An empty channelID subscribes to every channel.
func (m *Manager) Subscribe(channelID string, stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:        id,
		channelID: channelID,
		stream:    stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Notify converts a playback event and broadcasts it.
func (m *Manager) Notify(e playback.Event) {
	m.Broadcast(FromEvent(e))
}

// FromEvent converts a playback event into an unsequenced notification.
func FromEvent(e playback.Event) *Notification {
	n := &Notification{
		Type:      e.Type.String(),
		ChannelID: e.ChannelID,
		State:     e.State.String(),
		At:        e.At,
	}
	if e.Request != nil {
		n.Request = e.Request.Display()
	}
	if e.Track != nil {
		n.Track = NewTrack(*e.Track)
	}
	if e.Err != nil {
		n.Error = e.Err.Error()
	}
	return n
}

// NewTrack returns the wire view of t.
func NewTrack(t track.Resolved) *Track {
	return &Track{
		Title:       t.Title,
		PageURL:     t.PageURL,
		Duration:    t.Duration,
		Uploader:    t.Uploader,
		Thumbnail:   t.Thumbnail,
		RequestedBy: t.Requester.Name,
	}
}

// Broadcast stamps the notification with the next sequence number and sends
// it to every matching subscriber. Each send is bounded by a timeout.
func (m *Manager) Broadcast(notification *Notification) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	notification.SequenceNo = m.sequenceNo
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if sub.channelID == "" || sub.channelID == notification.ChannelID {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Err(err).Msgf("notification: send failed: subscription=%s", s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: subscription=%s seq=%d", s.id, notification.SequenceNo)
			}
		}(sub)
	}
	wg.Wait()
}

// SequenceNo returns the number of the last broadcast notification.
func (m *Manager) SequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	return m.sequenceNo
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
