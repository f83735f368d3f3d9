package session

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/domain/track"
	zlog "github.com/rs/zerolog/log"
)

// DepsFactory builds the per-channel playback collaborators.
type DepsFactory func(channelID string) (playback.Deps, error)

// Registry maps channel IDs to live sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	config   playback.Config
	factory  DepsFactory
	notifier playback.Notifier
}

// NewRegistry creates an empty registry. notifier, when set, overrides the
// Notifier returned by the factory.
func NewRegistry(config playback.Config, factory DepsFactory, notifier playback.Notifier) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		config:   config,
		factory:  factory,
		notifier: notifier,
	}
}

// GetOrCreate returns the live session for channelID, creating and starting
// one if absent.
func (r *Registry) GetOrCreate(channelID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if s, ok := r.sessions[channelID]; ok {
		return s, nil
	}

	deps, err := r.factory(channelID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build playback dependencies for channel %s", channelID)
	}
	if r.notifier != nil {
		deps.Notifier = r.notifier
	}

	s, err := newSession(channelID, r.config, deps, r.release)
	if err != nil {
		return nil, err
	}
	r.sessions[channelID] = s
	s.start()
	return s, nil
}

// Get returns the live session for channelID.
func (r *Registry) Get(channelID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[channelID]
	return s, ok
}

// Submit enqueues requests into the channel's session, creating it if needed.
// A session that closes between lookup and enqueue is replaced once.
func (r *Registry) Submit(channelID string, reqs ...track.Request) (*Session, error) {
	for attempt := 0; attempt < 2; attempt++ {
		s, err := r.GetOrCreate(channelID)
		if err != nil {
			return nil, err
		}
		if err := s.Enqueue(reqs...); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				<-s.Done()
				continue
			}
			return nil, err
		}
		return s, nil
	}
	return nil, ErrSessionClosed
}

// Remove tears down the session for channelID if present and waits for it to
// finish. It reports whether a session was found.
func (r *Registry) Remove(ctx context.Context, channelID string) (bool, error) {
	s, ok := r.Get(channelID)
	if !ok {
		return false, nil
	}
	return true, s.Stop(ctx)
}

// release drops s from the map unless it was already replaced.
func (r *Registry) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.channelID]; ok && cur == s {
		delete(r.sessions, s.channelID)
		zlog.Debug().Msgf("session: removed from registry: channel=%s session_id=%s", s.channelID, s.ID())
	}
}

// Shutdown tears down every session and refuses new ones.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	zlog.Info().Msgf("session: host shutdown: sessions=%d", len(sessions))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			if err := s.shutdown(ctx); err != nil {
				mu.Lock()
				errs = errors.CombineErrors(errs, err)
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()
	return errs
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// List returns info for every live session ordered by channel ID.
func (r *Registry) List() []Info {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ChannelID < infos[j].ChannelID })
	return infos
}
