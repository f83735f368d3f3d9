package resolve

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/infra/config"
	"github.com/osa030/guildbox/internal/infra/ytdlp"
)

// NewChainFromConfig creates a resolver chain from configuration.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	if len(cfg.Resolvers) == 0 {
		return nil, ErrNoResolvers
	}

	var resolvers []Named

	for i, rcfg := range cfg.Resolvers {
		var r Resolver
		var err error
		zlog.Debug().Msgf("creating resolver: index=%d type=%s settings=%+v", i+1, rcfg.Type, rcfg.Settings)
		switch rcfg.Type {
		case "ytdlp":
			r, err = ytdlp.NewResolver(rcfg.Settings)

		default:
			return nil, errors.Newf("unsupported resolver type: %s (resolver index %d)", rcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create resolver (index %d, type %s)", i, rcfg.Type)
		}

		name := rcfg.DisplayName
		if name == "" {
			name = rcfg.Type
		}
		resolvers = append(resolvers, Named{Resolver: r, DisplayName: name})

		zlog.Info().Msgf("registered resolver: index=%d type=%s display_name=%s", i+1, rcfg.Type, name)
	}

	return NewChain(resolvers), nil
}
