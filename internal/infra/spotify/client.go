// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/osa030/guildbox/internal/domain/playlist"
	"github.com/osa030/guildbox/internal/domain/track"
)

// ErrNotSpotify is returned for locators that do not point at Spotify.
var ErrNotSpotify = errors.New("not a spotify locator")

// Client is a Spotify API client that expands links into prepared tracks.
type Client struct {
	client     *spotify.Client
	market     string
	maxTracks  int
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string // Optional; enables private playlists
	Market       string
	MaxTracks    int // Upper bound on tracks taken from one album or playlist
}

// New creates a new Spotify client. With a refresh token the client acts on
// behalf of that user; otherwise it uses the client credentials flow.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	var raw *spotify.Client
	if cfg.RefreshToken != "" {
		auth := spotifyauth.New(
			spotifyauth.WithClientID(cfg.ClientID),
			spotifyauth.WithClientSecret(cfg.ClientSecret),
			spotifyauth.WithScopes(spotifyauth.ScopePlaylistReadPrivate),
		)
		// Get HTTP client with auto-refresh capability
		httpClient := auth.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
		raw = spotify.New(httpClient, spotify.WithRetry(true))
	} else {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
		raw = spotify.New(cc.Client(ctx), spotify.WithRetry(true))
	}

	return newClient(raw, cfg.Market, cfg.MaxTracks), nil
}

func newClient(raw *spotify.Client, market string, maxTracks int) *Client {
	if market == "" {
		market = "JP"
	}
	if maxTracks <= 0 {
		maxTracks = 100
	}
	return &Client{
		client:     raw,
		market:     market,
		maxTracks:  maxTracks,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Expand turns a Spotify track, album or playlist locator into prepared
// track descriptors in source order.
func (c *Client) Expand(ctx context.Context, locator string) (*playlist.Playlist, error) {
	kind, id, err := ParseID(locator)
	if err != nil {
		return nil, err
	}

	switch kind {
	case playlist.KindTrack:
		return c.expandTrack(ctx, id)
	case playlist.KindAlbum:
		return c.expandAlbum(ctx, id)
	case playlist.KindPlaylist:
		return c.expandPlaylist(ctx, id)
	default:
		return nil, errors.Newf("unsupported spotify type: %s", kind)
	}
}

func (c *Client) expandTrack(ctx context.Context, id spotify.ID) (*playlist.Playlist, error) {
	var result *spotify.FullTrack
	err := c.retry(func() error {
		t, err := c.client.GetTrack(ctx, id, spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get track")
	}

	return &playlist.Playlist{
		ID:     string(result.ID),
		Name:   result.Name,
		URL:    c.GetTrackURL(string(result.ID)),
		Kind:   playlist.KindTrack,
		Tracks: []track.Prepared{c.convertTrack(result.SimpleTrack)},
	}, nil
}

func (c *Client) expandAlbum(ctx context.Context, id spotify.ID) (*playlist.Playlist, error) {
	var album *spotify.FullAlbum
	err := c.retry(func() error {
		a, err := c.client.GetAlbum(ctx, id, spotify.Market(c.market))
		if err != nil {
			return err
		}
		album = a
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get album")
	}

	pl := &playlist.Playlist{
		ID:   string(album.ID),
		Name: album.Name,
		URL:  fmt.Sprintf("https://open.spotify.com/album/%s", album.ID),
		Kind: playlist.KindAlbum,
	}

	page := &album.Tracks
	for {
		for _, t := range page.Tracks {
			if len(pl.Tracks) >= c.maxTracks {
				return pl, nil
			}
			pl.Tracks = append(pl.Tracks, c.convertTrack(t))
		}
		if page.Next == "" {
			return pl, nil
		}
		err := c.retry(func() error {
			return c.client.NextPage(ctx, page)
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get album tracks")
		}
	}
}

func (c *Client) expandPlaylist(ctx context.Context, id spotify.ID) (*playlist.Playlist, error) {
	var meta *spotify.FullPlaylist
	err := c.retry(func() error {
		p, err := c.client.GetPlaylist(ctx, id, spotify.Market(c.market))
		if err != nil {
			return err
		}
		meta = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist")
	}

	pl := &playlist.Playlist{
		ID:   string(meta.ID),
		Name: meta.Name,
		URL:  c.GetPlaylistURL(string(meta.ID)),
		Kind: playlist.KindPlaylist,
	}

	offset := 0
	limit := 100

	for len(pl.Tracks) < c.maxTracks {
		var page *spotify.PlaylistItemPage
		err := c.retry(func() error {
			p, err := c.client.GetPlaylistItems(ctx, id,
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			// Only process tracks (exclude episodes)
			if item.Track.Track != nil && item.Track.Track.ID != "" && len(pl.Tracks) < c.maxTracks {
				pl.Tracks = append(pl.Tracks, c.convertTrack(item.Track.Track.SimpleTrack))
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return pl, nil
}

// GetPlaylistURL returns the Spotify URL for a playlist.
func (c *Client) GetPlaylistURL(playlistID string) string {
	return fmt.Sprintf("https://open.spotify.com/playlist/%s", playlistID)
}

// GetTrackURL returns the Spotify URL for a track.
func (c *Client) GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// convertTrack converts a Spotify track to a prepared descriptor.
func (c *Client) convertTrack(t spotify.SimpleTrack) track.Prepared {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return track.Prepared{
		Title:    t.Name,
		Artists:  artists,
		Origin:   c.GetTrackURL(string(t.ID)),
		Duration: time.Duration(t.Duration) * time.Millisecond,
	}
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// IsSpotifyLocator reports whether raw looks like a Spotify URL or URI.
func IsSpotifyLocator(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "spotify:") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Host == "open.spotify.com" || u.Host == "www.open.spotify.com"
}

// ParseID extracts the collection kind and ID from a Spotify URL or URI.
// Regional path prefixes such as /intl-ja/ are skipped.
func ParseID(raw string) (playlist.Kind, spotify.ID, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[2] == "" {
			return "", "", errors.Wrapf(ErrNotSpotify, "invalid spotify URI %q", raw)
		}
		return toKind(parts[1], spotify.ID(parts[2]))
	}

	if !IsSpotifyLocator(raw) {
		return "", "", errors.Wrapf(ErrNotSpotify, "%q", raw)
	}
	u, _ := url.Parse(raw)

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", errors.Newf("invalid spotify URL path: %s", u.Path)
	}
	return toKind(parts[0], spotify.ID(parts[1]))
}

func toKind(typ string, id spotify.ID) (playlist.Kind, spotify.ID, error) {
	switch typ {
	case "track":
		return playlist.KindTrack, id, nil
	case "album":
		return playlist.KindAlbum, id, nil
	case "playlist":
		return playlist.KindPlaylist, id, nil
	}
	return "", "", errors.Newf("unsupported spotify type: %s", typ)
}
