package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/domain/track"
)

// ErrRejected marks a track refused by a filter.
var ErrRejected = errors.New("track rejected by filter")

// FilterSettings reports which filters are enabled and their settings.
type FilterSettings interface {
	IsFilterEnabled(name string) bool
	GetFilterSettings(name string) map[string]any
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds a chain from every enabled registered filter, in
// name order.
func NewChainFromConfig(cfg FilterSettings) (*Chain, error) {
	c := NewChain()
	for _, name := range RegisteredNames() {
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		f := registry[name]()
		if err := f.ValidateConfig(cfg.GetFilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for filter %s", name)
		}
		c.Add(f)
		zlog.Info().Msgf("filter: enabled: name=%s", name)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t track.Resolved) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, t)
		if !result.Accepted {
			result.Filter = f.Name()
			return result
		}
	}
	return Accept()
}

// Admit runs the chain and converts a rejection into an error marked
// ErrRejected.
func (c *Chain) Admit(ctx context.Context, t track.Resolved) error {
	result := c.Execute(ctx, t)
	if result.Accepted {
		return nil
	}
	return errors.Mark(errors.Newf("%s rejected track: %s", result.Filter, result.Code), ErrRejected)
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
