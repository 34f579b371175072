// Package cache provides a small in-memory TTL cache for assembled row
// sets and proxied upstream responses.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// TTL is a key/value cache with per-entry expiry. Expired entries are
// dropped lazily on read; there is no background sweeper. Concurrent
// writers racing on the same key are fine, last write wins.
type TTL[T any] struct {
	mu         sync.Mutex
	store      map[string]entry[T]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTTL creates a cache whose Set uses defaultTTL when no explicit TTL
// is given.
func NewTTL[T any](defaultTTL time.Duration) *TTL[T] {
	return &TTL[T]{
		store:      make(map[string]entry[T]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached value for key, or false if the key is absent
// or expired.
func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hit, ok := c.store[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().After(hit.expiresAt) {
		delete(c.store, key)
		var zero T
		return zero, false
	}
	return hit.value, true
}

// Set stores value under key with the default TTL.
func (c *TTL[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key, overriding the default TTL.
func (c *TTL[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = entry[T]{value: value, expiresAt: c.now().Add(ttl)}
}

// Clear drops every entry.
func (c *TTL[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]entry[T])
}
