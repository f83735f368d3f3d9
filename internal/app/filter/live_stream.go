package filter

import (
	"context"

	"github.com/osa030/guildbox/internal/domain/track"
)

// LiveStreamConfig represents the configuration for LiveStreamFilter.
type LiveStreamConfig struct {
	// RejectUnknownDuration also rejects tracks that report no duration.
	RejectUnknownDuration bool `mapstructure:"reject_unknown_duration"`
}

// LiveStreamFilter rejects live streams, which never complete on their own.
type LiveStreamFilter struct {
	config LiveStreamConfig
}

func (f *LiveStreamFilter) Name() string {
	return "live_stream_filter"
}

func (f *LiveStreamFilter) Description() string {
	return "Rejects live streams"
}

func (f *LiveStreamFilter) ReturnCodes() []string {
	return []string{"live_stream"}
}

func (f *LiveStreamFilter) ValidateConfig(settings map[string]any) error {
	return decodeSettings(settings, &f.config)
}

func (f *LiveStreamFilter) Check(ctx context.Context, t track.Resolved) Result {
	if t.IsLive {
		return Reject("live_stream")
	}
	if f.config.RejectUnknownDuration && t.Duration <= 0 {
		return Reject("live_stream")
	}
	return Accept()
}

func init() {
	Register("live_stream_filter", func() Filter {
		return &LiveStreamFilter{}
	})
}
