package driven

import (
	"context"
	"time"
)

// AncestorCache memoizes ancestor chains. Entries are never invalidated on
// write, only aged out by their TTL.
type AncestorCache interface {
	// Get returns the cached chain and true on a hit.
	Get(ctx context.Context, key string) ([]string, bool, error)

	// Set stores a chain for ttl.
	Set(ctx context.Context, key string, chain []string, ttl time.Duration) error
}
