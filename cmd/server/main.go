// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/guildbox/internal/api/connect"
	"github.com/osa030/guildbox/internal/api/rpc"
	"github.com/osa030/guildbox/internal/app/filter"
	"github.com/osa030/guildbox/internal/app/intake"
	"github.com/osa030/guildbox/internal/app/notification"
	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/app/resolve"
	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/infra/config"
	"github.com/osa030/guildbox/internal/infra/discord"
	"github.com/osa030/guildbox/internal/infra/logger"
	"github.com/osa030/guildbox/internal/infra/sink/ffmpeg"
	"github.com/osa030/guildbox/internal/infra/spotify"
)

var (
	app        = kingpin.New("guildbox-server", "guildbox per-channel playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %+v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	if err := validateFilterConfig(cfg); err != nil {
		return errors.Wrap(err, "invalid filter config")
	}
	filters, err := filter.NewChainFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create filter chain")
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	var expander intake.Expander
	if cfg.SpotifyEnabled() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
			MaxTracks:    cfg.Spotify.MaxTracks,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		expander = spotifyClient
		zlog.Info().Msg("Spotify link expansion enabled")
	} else {
		zlog.Info().Msg("Spotify not configured, Spotify links will be rejected")
	}

	sinks, err := ffmpeg.NewFactory(cfg.Sink.Settings)
	if err != nil {
		return errors.Wrap(err, "failed to create sink factory")
	}

	notifications := notification.NewManager()

	var registry *session.Registry
	var gateway *discord.Gateway
	host := playback.ReadyHost
	if cfg.DiscordEnabled() {
		gateway, err = discord.New(cfg.Discord.Token, cfg.Discord.ReadyTimeout(), func(channelID string) {
			go removeSession(registry, channelID, cfg.Server.ShutdownTimeout())
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Discord gateway")
		}
		host = gateway
	} else {
		zlog.Info().Msg("Discord not configured, sessions start immediately")
	}

	registry = session.NewRegistry(playback.Config{
		IdleTimeout:    cfg.Playback.IdleTimeout(),
		ResolveTimeout: cfg.Playback.ResolveTimeout(),
		ListLimit:      cfg.Playback.ListLimit,
		MinShuffleSize: cfg.Playback.MinShuffleSize,
	}, func(channelID string) (playback.Deps, error) {
		return playback.Deps{
			Resolver: resolver,
			Sink:     sinks.New(channelID),
			Host:     host,
			Admitter: filters,
		}, nil
	}, notifications)

	if gateway != nil {
		if err := gateway.Open(); err != nil {
			return err
		}
	}

	// Create RPC services
	listenerService := apiconnect.NewListenerService(registry, intake.New(expander), notifications)
	adminService := apiconnect.NewAdminService(registry, notifications, cfg.Server.ShutdownTimeout())

	// Register services
	interceptors := connect.WithInterceptors(apiconnect.NewLoggingInterceptor())
	mux := http.NewServeMux()
	mux.Handle(rpc.NewListenerServiceHandler(listenerService, interceptors))
	mux.Handle(rpc.NewAdminServiceHandler(adminService, interceptors))

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Give the listener a moment before running hooks
	time.Sleep(100 * time.Millisecond)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	var gatewayClosed <-chan struct{}
	if gateway != nil {
		gatewayClosed = gateway.Closed()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-gatewayClosed:
		zlog.Info().Msg("Discord gateway closed, shutting down...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	// Sessions first so their final notifications reach open streams
	if err := registry.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to stop sessions: %v", err)
	}
	notifications.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}
	if gateway != nil {
		if err := gateway.Close(); err != nil {
			zlog.Error().Msgf("Failed to close Discord gateway: %v", err)
		}
	}

	zlog.Info().Msg("Server stopped")
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// newResolver builds the resolver chain, throttled unless disabled and
// wrapped in the cache unless disabled.
func newResolver(cfg *config.Config) (playback.Resolver, error) {
	chain, err := resolve.NewChainFromConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create resolver chain")
	}
	var resolver resolve.Resolver = chain
	if !cfg.ResolveRate.Disabled {
		zlog.Info().Msgf("Resolve rate limit enabled: per_second=%v burst=%d", cfg.ResolveRate.PerSecond, cfg.ResolveRate.Burst)
		resolver = resolve.NewLimited(chain, cfg.ResolveRate.PerSecond, cfg.ResolveRate.Burst)
	}
	if cfg.ResolveCache.Disabled {
		return resolver, nil
	}
	zlog.Info().Msgf("Resolve cache enabled: ttl=%v max_entries=%d", cfg.ResolveCache.TTL(), cfg.ResolveCache.MaxEntries)
	return resolve.NewCache(resolver, cfg.ResolveCache.TTL(), cfg.ResolveCache.MaxEntries), nil
}

// removeSession tears down a channel's session after the bot left it.
func removeSession(registry *session.Registry, channelID string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	found, err := registry.Remove(ctx, channelID)
	if err != nil {
		zlog.Warn().Msgf("Failed to remove session: channel=%s error=%v", channelID, err)
		return
	}
	if found {
		zlog.Info().Msgf("Session removed after voice channel was abandoned: channel=%s", channelID)
	}
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	registered := filter.GetRegistered()
	for _, name := range filter.RegisteredNames() {
		f := registered[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	registry := filter.GetRegistered()

	for filterName, filterCfg := range cfg.Filters {
		if !filterCfg.Enabled {
			continue
		}

		factory, exists := registry[filterName]
		if !exists {
			return errors.Newf("unknown filter: %s", filterName)
		}

		if err := factory().ValidateConfig(filterCfg.Settings); err != nil {
			return errors.Wrapf(err, "filter %s", filterName)
		}
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
