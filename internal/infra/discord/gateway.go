// Package discord connects to the Discord gateway and reports host readiness
// and voice channel departures.
package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrReadyTimeout is returned when the gateway did not become ready in time.
var ErrReadyTimeout = errors.New("discord gateway not ready")

// Gateway wraps a discordgo session.
type Gateway struct {
	session      *discordgo.Session
	readyTimeout time.Duration
	onAbandoned  func(channelID string)
	listeners    func(guildID, channelID string) int

	readyOnce sync.Once
	ready     chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a gateway for a bot token. The connection is opened by Open.
// onAbandoned is called with a voice channel ID when the bot leaves it or no
// human listener remains in it.
func New(token string, readyTimeout time.Duration, onAbandoned func(channelID string)) (*Gateway, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	g := newGateway(dg, readyTimeout, onAbandoned)
	dg.AddHandler(g.onReady)
	dg.AddHandler(g.onDisconnect)
	dg.AddHandler(g.onVoiceStateUpdate)
	return g, nil
}

func newGateway(dg *discordgo.Session, readyTimeout time.Duration, onAbandoned func(string)) *Gateway {
	if onAbandoned == nil {
		onAbandoned = func(string) {}
	}
	g := &Gateway{
		session:      dg,
		readyTimeout: readyTimeout,
		onAbandoned:  onAbandoned,
		ready:        make(chan struct{}),
		closed:       make(chan struct{}),
	}
	g.listeners = g.countListeners
	return g
}

// Open connects to the gateway.
func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open discord session")
	}
	zlog.Info().Msg("discord: session opened")
	return nil
}

// Close disconnects from the gateway.
func (g *Gateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.closed)
		err = g.session.Close()
	})
	return errors.Wrap(err, "failed to close discord session")
}

// Closed is closed once Close has been called.
func (g *Gateway) Closed() <-chan struct{} {
	return g.closed
}

// WaitReady blocks until the gateway reported Ready, the ready timeout
// elapses, the gateway is closed, or ctx is done.
func (g *Gateway) WaitReady(ctx context.Context) error {
	var timeout <-chan time.Time
	if g.readyTimeout > 0 {
		t := time.NewTimer(g.readyTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-g.ready:
		return nil
	case <-g.closed:
		return errors.New("discord gateway closed")
	case <-timeout:
		return errors.Wrapf(ErrReadyTimeout, "after %v", g.readyTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	name := ""
	if r != nil && r.User != nil {
		name = r.User.Username
	}
	zlog.Info().Msgf("discord: ready: user=%s", name)
	g.readyOnce.Do(func() { close(g.ready) })
}

func (g *Gateway) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	zlog.Warn().Msg("discord: disconnected, waiting for reconnect")
}

func (g *Gateway) onVoiceStateUpdate(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if channelID, ok := g.abandonedChannel(vs); ok {
		zlog.Info().Msgf("discord: voice channel abandoned: guild=%s channel=%s", vs.GuildID, channelID)
		g.onAbandoned(channelID)
	}
}

// abandonedChannel reports the channel a session should leave after vs.
func (g *Gateway) abandonedChannel(vs *discordgo.VoiceStateUpdate) (string, bool) {
	if vs == nil || vs.VoiceState == nil || vs.BeforeUpdate == nil {
		return "", false
	}
	before := vs.BeforeUpdate.ChannelID
	if before == "" || before == vs.ChannelID {
		return "", false
	}

	if g.selfID() != "" && vs.UserID == g.selfID() {
		return before, true
	}
	if g.listeners(vs.GuildID, before) == 0 {
		return before, true
	}
	return "", false
}

func (g *Gateway) selfID() string {
	if g.session == nil || g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

// countListeners counts non-bot members in a voice channel.
func (g *Gateway) countListeners(guildID, channelID string) int {
	guild, _ := g.session.State.Guild(guildID)
	if guild == nil {
		return 0
	}
	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		m, _ := g.session.State.Member(guildID, vs.UserID)
		if m != nil && m.User != nil && !m.User.Bot {
			n++
		}
	}
	return n
}
