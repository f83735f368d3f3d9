package resolve

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/domain/track"
)

// ErrNoResolvers is returned by an empty chain.
var ErrNoResolvers = errors.New("no resolvers configured")

// Chain tries resolvers in order until one succeeds.
type Chain struct {
	resolvers []Named
}

// NewChain creates a new resolver chain.
func NewChain(resolvers []Named) *Chain {
	return &Chain{
		resolvers: resolvers,
	}
}

// Resolve returns the first successful result. When every resolver fails the
// errors are combined.
func (c *Chain) Resolve(ctx context.Context, req track.Request) (track.Resolved, error) {
	if len(c.resolvers) == 0 {
		return track.Resolved{}, ErrNoResolvers
	}

	var errs error
	for i, nr := range c.resolvers {
		zlog.Debug().Msgf("trying resolver: index=%d total=%d name=%s type=%s request=%q",
			i+1, len(c.resolvers), nr.DisplayName, nr.Resolver.Name(), req.Display())

		resolved, err := nr.Resolver.Resolve(ctx, req)
		if err == nil {
			zlog.Debug().Msgf("resolver succeeded: name=%s title=%q", nr.DisplayName, resolved.Title)
			return resolved, nil
		}
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "resolver %s", nr.DisplayName))

		if ctx.Err() != nil {
			return track.Resolved{}, errors.CombineErrors(ctx.Err(), errs)
		}
		zlog.Warn().Msgf("resolver failed, trying next: resolver=%s error=%v", nr.DisplayName, err)
	}

	return track.Resolved{}, errs
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "resolver_chain"
}

// Len returns the number of resolvers in the chain.
func (c *Chain) Len() int {
	return len(c.resolvers)
}
