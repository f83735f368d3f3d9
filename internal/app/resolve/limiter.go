package resolve

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/osa030/guildbox/internal/domain/track"
)

// Limited throttles calls to the wrapped resolver across all channels.
type Limited struct {
	next    Resolver
	limiter *rate.Limiter
}

// NewLimited allows perSecond calls with the given burst.
func NewLimited(next Resolver, perSecond float64, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Name returns the wrapped resolver name.
func (l *Limited) Name() string {
	return l.next.Name()
}

// Resolve waits for a token, then delegates.
func (l *Limited) Resolve(ctx context.Context, req track.Request) (track.Resolved, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return track.Resolved{}, errors.Wrap(err, "resolve rate limit")
	}
	return l.next.Resolve(ctx, req)
}
