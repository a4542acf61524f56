package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds a run's metadata cache when no size is configured.
const DefaultCacheSize = 256

type cacheEntry struct {
	size  int
	found bool
}

type cacheState struct {
	lru    *lru.Cache[Ref, cacheEntry]
	hits   atomic.Int64
	misses atomic.Int64
}

// Cached memoizes lookups of an inner Resolver in a bounded LRU cache.
//
// The cache belongs to one run. Wrap hands the same cache to the resolver of
// every step copy, so a column looked up by one copy is a hit for the others.
// It is safe for concurrent use; errors are never cached.
type Cached struct {
	inner Resolver
	s     *cacheState
}

// NewCached wraps inner with an LRU cache holding at most size entries.
// size <= 0 selects DefaultCacheSize.
func NewCached(inner Resolver, size int) (*Cached, error) {
	if inner == nil {
		return nil, fmt.Errorf("catalog: cached resolver needs an inner resolver")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[Ref, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("catalog: cache: %w", err)
	}
	return &Cached{inner: inner, s: &cacheState{lru: c}}, nil
}

// Wrap returns a Cached over inner that shares c's cache and counters.
func (c *Cached) Wrap(inner Resolver) *Cached {
	return &Cached{inner: inner, s: c.s}
}

// ColumnSize implements Resolver.
func (c *Cached) ColumnSize(ctx context.Context, table, column string) (int, bool, error) {
	key := Ref{Table: table, Column: column}
	if e, ok := c.s.lru.Get(key); ok {
		c.s.hits.Add(1)
		return e.size, e.found, nil
	}
	c.s.misses.Add(1)
	size, found, err := c.inner.ColumnSize(ctx, table, column)
	if err != nil {
		return 0, false, err
	}
	c.s.lru.Add(key, cacheEntry{size: size, found: found})
	return size, found, nil
}

// Close closes the inner resolver. The cache stays usable through other
// wrappers.
func (c *Cached) Close() error {
	return c.inner.Close()
}

// Len returns the number of cached entries.
func (c *Cached) Len() int { return c.s.lru.Len() }

// Stats returns cache hits and misses across every wrapper.
func (c *Cached) Stats() (hits, misses int64) {
	return c.s.hits.Load(), c.s.misses.Load()
}
