// Package cache memoizes invocation outcomes by resolved command for a
// per-descriptor time-to-live.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/homiodev/homio-hquery/internal/query"
)

// StorePolicy decides which outcomes may be cached.
type StorePolicy string

// Store policies.
const (
	// StoreWithoutErrors caches any outcome with empty error output, even a
	// non-zero exit.
	StoreWithoutErrors StorePolicy = "without_errors"
	// StoreSuccessOnly additionally requires exit code 0.
	StoreSuccessOnly StorePolicy = "success_only"
)

// ParsePolicy converts a configuration value to a StorePolicy.
func ParsePolicy(s string) (StorePolicy, error) {
	switch StorePolicy(s) {
	case "", StoreWithoutErrors:
		return StoreWithoutErrors, nil
	case StoreSuccessOnly:
		return StoreSuccessOnly, nil
	default:
		return "", fmt.Errorf("unknown cache store policy %q", s)
	}
}

// Observer is notified of cache activity.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
	CacheStore(key string)
}

// Entry is one cached outcome. Entries are replaced, never modified.
type Entry struct {
	Outcome *query.Outcome
	Created time.Time
	TTL     time.Duration
}

// Fresh reports whether the entry may still be served at now.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Sub(e.Created) < e.TTL
}

// Cache is an in-memory outcome cache safe for concurrent use. Concurrent
// misses on the same key may both compute; the last store wins.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	policy   StorePolicy
	now      func() time.Time
	observer Observer
}

// Option configures a Cache.
type Option func(*Cache)

// WithPolicy sets the store policy.
func WithPolicy(p StorePolicy) Option {
	return func(c *Cache) { c.policy = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver registers an activity observer.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*Entry),
		policy:  StoreWithoutErrors,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns a fresh outcome for key, or calls compute and stores
// its result when the policy accepts it. A non-positive ttl disables caching
// for the call. hit reports whether the outcome came from the cache.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, compute func() *query.Outcome) (out *query.Outcome, hit bool) {
	if ttl <= 0 {
		return compute(), false
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && entry.Fresh(c.now()) {
		if c.observer != nil {
			c.observer.CacheHit(key)
		}
		return entry.Outcome, true
	}
	if c.observer != nil {
		c.observer.CacheMiss(key)
	}

	out = compute()
	if c.accepts(out) {
		c.mu.Lock()
		c.entries[key] = &Entry{Outcome: out, Created: c.now(), TTL: ttl}
		c.mu.Unlock()
		if c.observer != nil {
			c.observer.CacheStore(key)
		}
	}
	return out, false
}

func (c *Cache) accepts(out *query.Outcome) bool {
	if out == nil || out.HasErrors() {
		return false
	}
	if c.policy == StoreSuccessOnly && out.ExitCode != 0 {
		return false
	}
	return true
}

// Get returns the entry for key if it is still fresh.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !entry.Fresh(c.now()) {
		return nil, false
	}
	return entry, true
}

// Invalidate removes key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge removes expired entries and returns how many were dropped.
func (c *Cache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if !e.Fresh(now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
