// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig            `yaml:"server"`
	Playback     PlaybackConfig          `yaml:"playback"`
	Resolvers    []ResolverConfig        `yaml:"resolvers" validate:"dive"`
	ResolveCache ResolveCacheConfig      `yaml:"resolve_cache"`
	ResolveRate  ResolveRateConfig       `yaml:"resolve_rate"`
	Sink         SinkConfig              `yaml:"sink"`
	Filters      map[string]FilterConfig `yaml:"filters"`
	Spotify      SpotifyConfig           `yaml:"spotify"`
	Discord      DiscordConfig           `yaml:"discord"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr               string      `yaml:"addr" default:":8080"`
	ShutdownTimeoutSec int         `yaml:"shutdown_timeout_sec" default:"10" validate:"gte=1"`
	Hooks              HooksConfig `yaml:"hooks"`
}

// HooksConfig lists shell commands run around the server lifecycle.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ShutdownTimeout returns the shutdown bound as a duration.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

// PlaybackConfig represents playback loop configuration.
type PlaybackConfig struct {
	IdleTimeoutSec    int `yaml:"idle_timeout_sec" default:"300" validate:"gte=0"`
	ResolveTimeoutSec int `yaml:"resolve_timeout_sec" default:"30" validate:"gte=0"`
	ListLimit         int `yaml:"list_limit" default:"10" validate:"gte=1,lte=100"`
	MinShuffleSize    int `yaml:"min_shuffle_size" default:"4" validate:"gte=2"`
}

// IdleTimeout returns the idle bound as a duration.
func (p PlaybackConfig) IdleTimeout() time.Duration {
	return time.Duration(p.IdleTimeoutSec) * time.Second
}

// ResolveTimeout returns the resolver bound as a duration.
func (p PlaybackConfig) ResolveTimeout() time.Duration {
	return time.Duration(p.ResolveTimeoutSec) * time.Second
}

// ResolverConfig represents a single resolver in the chain.
type ResolverConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// ResolveCacheConfig represents the resolved-track cache.
type ResolveCacheConfig struct {
	Disabled   bool `yaml:"disabled"`
	TTLSec     int  `yaml:"ttl_sec" default:"600" validate:"gte=1"`
	MaxEntries int  `yaml:"max_entries" default:"256" validate:"gte=1"`
}

// ResolveRateConfig throttles resolver calls across all channels.
type ResolveRateConfig struct {
	Disabled  bool    `yaml:"disabled"`
	PerSecond float64 `yaml:"per_second" default:"2" validate:"gt=0"`
	Burst     int     `yaml:"burst" default:"5" validate:"gte=1"`
}

// TTL returns the cache TTL as a duration.
func (c ResolveCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// SinkConfig represents the audio sink configuration.
type SinkConfig struct {
	Type     string         `yaml:"type" default:"ffmpeg" validate:"oneof=ffmpeg"`
	Settings map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// SpotifyConfig represents Spotify API configuration. Expansion of Spotify
// links is disabled when no client ID is set.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required_with=ClientSecret"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
	MaxTracks    int    `yaml:"max_tracks" default:"100" validate:"gte=1"`
}

// DiscordConfig represents the Discord gateway configuration. The gateway is
// disabled when no token is set.
type DiscordConfig struct {
	Token           string `yaml:"token"`
	ReadyTimeoutSec int    `yaml:"ready_timeout_sec" default:"30" validate:"gte=1"`
}

// ReadyTimeout returns the gateway ready bound as a duration.
func (d DiscordConfig) ReadyTimeout() time.Duration {
	return time.Duration(d.ReadyTimeoutSec) * time.Second
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if len(cfg.Resolvers) == 0 {
		cfg.Resolvers = []ResolverConfig{{Type: "ytdlp", DisplayName: "yt-dlp"}}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// SpotifyEnabled reports whether Spotify link expansion is configured.
func (c *Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// DiscordEnabled reports whether the Discord gateway is configured.
func (c *Config) DiscordEnabled() bool {
	return c.Discord.Token != ""
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
