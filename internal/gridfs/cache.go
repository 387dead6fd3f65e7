// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gridfs

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cached memoizes decoded grid files in front of another Reader. Grid files
// are immutable once written, so entries only expire to bound memory.
// Failed lookups are not cached.
type Cached struct {
	next  Reader
	store *gocache.Cache
}

// NewCached wraps next with a TTL cache.
func NewCached(next Reader, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		store: gocache.New(ttl, 2*ttl),
	}
}

// Get returns the cached identifiers for ref or loads them from next.
// Callers receive a copy and may modify it.
func (c *Cached) Get(ctx context.Context, ref string) ([]string, error) {
	if v, ok := c.store.Get(ref); ok {
		return append([]string(nil), v.([]string)...), nil
	}
	ids, err := c.next.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(ref, append([]string(nil), ids...))
	return ids, nil
}

// ItemCount returns the number of cached grid files.
func (c *Cached) ItemCount() int {
	return c.store.ItemCount()
}
