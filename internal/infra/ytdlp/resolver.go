// Package ytdlp resolves track requests through yt-dlp.
package ytdlp

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	ytdlp "github.com/lrstanley/go-ytdlp"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/domain/track"
)

// ErrNoResult is returned when yt-dlp found nothing playable.
var ErrNoResult = errors.New("yt-dlp returned no result")

// Config represents resolver settings.
type Config struct {
	Format       string `mapstructure:"format" default:"ba[acodec^=opus]/ba[ext=m4a]/bestaudio/best"`
	SearchPrefix string `mapstructure:"search_prefix" default:"ytsearch:" validate:"oneof=ytsearch: ytmsearch: scsearch:"`
	CookiesPath  string `mapstructure:"cookies_path"`
	Proxy        string `mapstructure:"proxy"`
	Install      bool   `mapstructure:"install"` // Download yt-dlp on first use
}

// Info is the subset of yt-dlp metadata the resolver needs.
type Info struct {
	ID        string
	Title     string
	Uploader  string
	PageURL   string
	StreamURL string
	Thumbnail string
	Duration  time.Duration
	IsLive    bool
}

// ExtractFunc fetches metadata for a URL or search target.
type ExtractFunc func(ctx context.Context, target string) (*Info, error)

// Resolver resolves requests by running yt-dlp.
type Resolver struct {
	config  Config
	extract ExtractFunc
}

var installOnce sync.Once

// NewResolver creates a resolver from a settings map.
func NewResolver(settings map[string]any) (*Resolver, error) {
	var config Config
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	zlog.Debug().Msgf("ytdlp resolver config: %+v", config)

	r := &Resolver{config: config}
	r.extract = r.run
	return r, nil
}

// NewResolverWithExtract creates a resolver that uses extract instead of
// spawning yt-dlp.
func NewResolverWithExtract(config Config, extract ExtractFunc) *Resolver {
	if config.SearchPrefix == "" {
		config.SearchPrefix = "ytsearch:"
	}
	return &Resolver{config: config, extract: extract}
}

// Name returns the resolver name.
func (r *Resolver) Name() string {
	return "ytdlp"
}

// Resolve resolves req into playable metadata.
func (r *Resolver) Resolve(ctx context.Context, req track.Request) (track.Resolved, error) {
	target, offset, err := r.Target(req)
	if err != nil {
		return track.Resolved{}, err
	}

	info, err := r.extract(ctx, target)
	if err != nil {
		return track.Resolved{}, errors.Wrapf(err, "yt-dlp %q", target)
	}
	if info == nil || info.StreamURL == "" {
		return track.Resolved{}, errors.Wrapf(ErrNoResult, "%q", target)
	}

	pageURL := info.PageURL
	if pageURL == "" {
		pageURL = target
	}
	return track.Resolved{
		Title:       info.Title,
		PageURL:     pageURL,
		StreamURL:   info.StreamURL,
		Duration:    info.Duration,
		Uploader:    info.Uploader,
		Thumbnail:   info.Thumbnail,
		IsLive:      info.IsLive,
		Requester:   req.RequestedBy(),
		StartOffset: offset,
	}, nil
}

// Target returns the yt-dlp argument and start offset for req.
func (r *Resolver) Target(req track.Request) (string, time.Duration, error) {
	switch v := req.(type) {
	case track.Search:
		return r.config.SearchPrefix + v.Query, 0, nil
	case track.Direct:
		return v.URL, v.StartOffset, nil
	case track.Prepared:
		if v.Locator != "" {
			return v.Locator, v.StartOffset, nil
		}
		return r.config.SearchPrefix + v.SearchHint(), v.StartOffset, nil
	default:
		return "", 0, errors.Wrapf(track.ErrUnknownRequest, "%T", req)
	}
}

func (r *Resolver) run(ctx context.Context, target string) (*Info, error) {
	if r.config.Install {
		installOnce.Do(func() {
			ytdlp.MustInstall(ctx, nil)
		})
	}

	cmd := ytdlp.New().
		Format(r.config.Format).
		NoCheckCertificates().
		NoWarnings().
		DumpJSON()
	if r.config.CookiesPath != "" {
		cmd = cmd.Cookies(r.config.CookiesPath)
	}
	if r.config.Proxy != "" {
		cmd = cmd.Proxy(r.config.Proxy)
	}

	res, err := cmd.Run(ctx, target)
	if err != nil {
		return nil, errors.Wrap(err, "yt-dlp run")
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, errors.Wrap(err, "parse yt-dlp json")
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, ErrNoResult
	}
	return fromExtracted(infos[0])
}

// fromExtracted maps yt-dlp output to Info. Search and playlist containers
// yield their first entry.
func fromExtracted(ext *ytdlp.ExtractedInfo) (*Info, error) {
	if len(ext.Entries) > 0 {
		for _, e := range ext.Entries {
			if e != nil {
				return fromExtracted(e)
			}
		}
		return nil, ErrNoResult
	}

	info := &Info{
		ID:       ext.ID,
		Title:    str(ext.Title),
		Uploader: str(ext.Uploader),
		PageURL:  str(ext.WebpageURL),
		Duration: time.Duration(num(ext.Duration) * float64(time.Second)),
		IsLive:   boolean(ext.IsLive),
	}
	if len(ext.Thumbnails) > 0 && ext.Thumbnails[len(ext.Thumbnails)-1] != nil {
		info.Thumbnail = ext.Thumbnails[len(ext.Thumbnails)-1].URL
	}

	// Preferred order: requested formats, top-level url, then formats.
	for _, f := range ext.RequestedFormats {
		if f != nil && strings.HasPrefix(f.URL, "http") {
			info.StreamURL = f.URL
			break
		}
	}
	if info.StreamURL == "" && strings.HasPrefix(str(ext.URL), "http") {
		info.StreamURL = str(ext.URL)
	}
	if info.StreamURL == "" {
		for _, f := range ext.Formats {
			if f != nil && strings.HasPrefix(f.URL, "http") {
				info.StreamURL = f.URL
				break
			}
		}
	}
	return info, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func boolean(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}
