// Package resolve turns track requests into playable metadata through an
// ordered chain of resolvers.
package resolve

import (
	"context"

	"github.com/osa030/guildbox/internal/domain/track"
)

// Resolver is the interface for resolver backends.
type Resolver interface {
	// Resolve returns playable metadata for req.
	Resolve(ctx context.Context, req track.Request) (track.Resolved, error)

	// Name returns the resolver type name (used in config).
	Name() string
}

// Named wraps a resolver with its display name.
type Named struct {
	Resolver    Resolver
	DisplayName string
}
