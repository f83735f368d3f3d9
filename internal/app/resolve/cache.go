package resolve

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/domain/track"
)

// Cache memoizes resolutions in a size-bounded LRU. Entries expire after the
// TTL because stream URLs handed out by media sites are short-lived.
type Cache struct {
	next    Resolver
	entries *expirable.LRU[string, track.Resolved]
}

// NewCache wraps next with a TTL cache holding at most maxEntries results.
func NewCache(next Resolver, ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		next:    next,
		entries: expirable.NewLRU[string, track.Resolved](maxEntries, nil, ttl),
	}
}

// Name returns the wrapped resolver name.
func (c *Cache) Name() string {
	return "cached_" + c.next.Name()
}

// Resolve returns a cached result when fresh, otherwise resolves and stores.
// The requester and start offset always come from req.
func (c *Cache) Resolve(ctx context.Context, req track.Request) (track.Resolved, error) {
	key := cacheKey(req)

	if resolved, ok := c.entries.Get(key); ok {
		zlog.Debug().Msgf("resolve cache hit: key=%q", key)
		return withRequest(resolved, req), nil
	}

	resolved, err := c.next.Resolve(ctx, req)
	if err != nil {
		return track.Resolved{}, err
	}
	c.entries.Add(key, resolved)
	return resolved, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func cacheKey(req track.Request) string {
	switch v := req.(type) {
	case track.Search:
		return "search:" + v.Query
	case track.Direct:
		return "direct:" + v.URL
	case track.Prepared:
		if v.Locator != "" {
			return "direct:" + v.Locator
		}
		return "search:" + v.SearchHint()
	default:
		return "other:" + req.Display()
	}
}

func withRequest(resolved track.Resolved, req track.Request) track.Resolved {
	resolved.Requester = req.RequestedBy()
	switch v := req.(type) {
	case track.Direct:
		resolved.StartOffset = v.StartOffset
	case track.Prepared:
		resolved.StartOffset = v.StartOffset
	default:
		resolved.StartOffset = 0
	}
	return resolved
}
