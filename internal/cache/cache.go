// Package cache provides a TTL cache with in-flight request deduplication.
// Concurrent callers for the same key share a single fetch; failed fetches
// are never cached, so the next caller retries.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value   any
	expires time.Time
}

type inflight struct {
	done  chan struct{}
	value any
	err   error
}

// Cache is safe for concurrent use. The zero value is not usable; call New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	pending map[string]*inflight

	hits   uint64
	misses uint64
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		pending: make(map[string]*inflight),
	}
}

// Get returns the cached value for key if present and unexpired. Otherwise
// it invokes fetch exactly once per key regardless of how many callers
// arrive concurrently; all waiters receive the same result. A fetch error
// is returned to every waiter and nothing is cached.
//
// A waiter whose ctx is cancelled stops waiting and returns ctx.Err(); the
// fetch itself keeps running for the remaining waiters.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expires) {
		c.hits++
		c.mu.Unlock()
		return e.value, nil
	}
	if fl, ok := c.pending[key]; ok {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.value, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.misses++
	fl := &inflight{done: make(chan struct{})}
	c.pending[key] = fl
	c.mu.Unlock()

	value, err := fetch(ctx)

	c.mu.Lock()
	delete(c.pending, key)
	if err == nil {
		c.entries[key] = &entry{value: value, expires: time.Now().Add(ttl)}
	}
	c.mu.Unlock()

	fl.value, fl.err = value, err
	close(fl.done)
	return value, err
}

// Invalidate drops the entry for key, if any. An in-flight fetch for the
// key is unaffected.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix drops every entry whose key starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Clear drops all entries. Pending fetches complete normally but their
// results were stored before Clear only if they finished first.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *Cache) Cleanup() int {
	now := time.Now()
	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()
	return removed
}

// RunCleanup sweeps expired entries every interval until ctx is cancelled.
func (c *Cache) RunCleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Cleanup()
		}
	}
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
	Pending int    `json:"pending"`
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries), Pending: len(c.pending)}
}

// GetTyped is a typed wrapper over Cache.Get for callers that know the
// concrete value type. A cached value of a different type is a programming
// error and reports ok=false via the zero value and errTypeMismatch.
func GetTyped[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, errTypeMismatch
	}
	return out, nil
}

var errTypeMismatch = typeMismatchError{}

type typeMismatchError struct{}

func (typeMismatchError) Error() string { return "cache: stored value has unexpected type" }
