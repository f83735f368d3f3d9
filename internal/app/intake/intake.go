// Package intake classifies user-supplied locators into track requests.
package intake

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/domain/playlist"
	"github.com/osa030/guildbox/internal/domain/track"
)

var (
	// ErrEmptyLocator is returned for blank input.
	ErrEmptyLocator = errors.New("empty locator")
	// ErrUnsupportedHost is returned for links to sites that cannot be played.
	ErrUnsupportedHost = errors.New("unsupported host")
	// ErrExpansionUnavailable is returned for Spotify links when no expander is configured.
	ErrExpansionUnavailable = errors.New("spotify expansion is not configured")
	// ErrEmptyCollection is returned when a link expands to no playable tracks.
	ErrEmptyCollection = errors.New("collection has no tracks")
)

// Source identifies where a locator points.
type Source string

const (
	SourceSearch     Source = "search"
	SourceYouTube    Source = "youtube"
	SourceSoundCloud Source = "soundcloud"
	SourceSpotify    Source = "spotify"
)

// Expander expands a collection link into prepared tracks.
type Expander interface {
	Expand(ctx context.Context, locator string) (*playlist.Playlist, error)
}

// Result is the outcome of classifying one locator.
type Result struct {
	Source     Source
	Requests   []track.Request
	Collection *playlist.Playlist // Set for expanded links
}

// Intake turns locators into requests.
type Intake struct {
	expander Expander
}

// New creates an intake. expander may be nil, in which case Spotify links are
// rejected.
func New(expander Expander) *Intake {
	return &Intake{expander: expander}
}

// Parse classifies locator and builds the requests to enqueue.
func (in *Intake) Parse(ctx context.Context, locator string, requester track.Requester) (Result, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return Result{}, ErrEmptyLocator
	}

	u, ok := parseLink(locator)
	if !ok {
		return Result{
			Source:   SourceSearch,
			Requests: []track.Request{track.Search{Query: locator, Requester: requester}},
		}, nil
	}

	link := u.String()
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	switch {
	case host == "youtube.com" || host == "music.youtube.com" || host == "youtu.be":
		return Result{
			Source: SourceYouTube,
			Requests: []track.Request{track.Direct{
				URL:         link,
				StartOffset: startOffset(u.Query()),
				Requester:   requester,
			}},
		}, nil

	case host == "soundcloud.com" || host == "on.soundcloud.com":
		return Result{
			Source:   SourceSoundCloud,
			Requests: []track.Request{track.Direct{URL: link, Requester: requester}},
		}, nil

	case host == "open.spotify.com" || host == "spotify.com":
		return in.expand(ctx, link, requester)

	default:
		return Result{}, errors.Wrapf(ErrUnsupportedHost, "%s", host)
	}
}

func (in *Intake) expand(ctx context.Context, locator string, requester track.Requester) (Result, error) {
	if in.expander == nil {
		return Result{}, ErrExpansionUnavailable
	}

	pl, err := in.expander.Expand(ctx, locator)
	if err != nil {
		return Result{}, errors.Wrapf(err, "expand %s", locator)
	}
	if pl == nil || len(pl.Tracks) == 0 {
		return Result{}, errors.Wrapf(ErrEmptyCollection, "%s", locator)
	}
	zlog.Debug().Msgf("intake: expanded: locator=%s kind=%s tracks=%d", locator, pl.Kind, len(pl.Tracks))

	return Result{
		Source:     SourceSpotify,
		Requests:   pl.Requests(requester),
		Collection: pl,
	}, nil
}

// parseLink reports whether s is an absolute http(s) link. Scheme-less
// host/path input such as "youtu.be/abc" is accepted too.
func parseLink(s string) (*url.URL, bool) {
	if strings.ContainsAny(s, " \t\n") {
		return nil, false
	}
	candidate := s
	if !strings.Contains(s, "://") {
		if !strings.Contains(s, "/") || !strings.Contains(strings.SplitN(s, "/", 2)[0], ".") {
			return nil, false
		}
		candidate = "https://" + s
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

// startOffset reads the "t" or "ts" query parameter. Both bare seconds and
// unit forms like "1m30s" are accepted.
func startOffset(q url.Values) time.Duration {
	for _, key := range []string{"t", "ts"} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		if d, ok := ParseOffset(v); ok {
			return d
		}
	}
	return 0
}

// ParseOffset parses "90", "90s", "1m30s" or "1h2m3s".
func ParseOffset(v string) (time.Duration, bool) {
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
