// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package devices

import (
	"sync"
	"time"
)

// CacheTTL is how long a decoded status stays fresh.
const CacheTTL = 60 * time.Second

// Clock returns the current time. Tests substitute a fake one.
type Clock func() time.Time

// Cached holds the last decoded value of one decoder instance.
//
// It starts empty, becomes fresh after a successful fetch and turns stale
// once the TTL has elapsed or Invalidate is called. A failed fetch leaves
// the previous state untouched.
type Cached[T any] struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    Clock
	value  T
	readAt time.Time
	valid  bool
}

// NewCached creates an empty cache.
func NewCached[T any](ttl time.Duration, now Clock) *Cached[T] {
	if now == nil {
		now = time.Now
	}
	return &Cached[T]{ttl: ttl, now: now}
}

// Get returns the cached value while it is fresh, otherwise calls fetch and
// stores its result. Concurrent callers of the same cache wait for a single
// fetch.
func (c *Cached[T]) Get(fetch func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.freshLocked() {
		return c.value, nil
	}

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	c.value = v
	c.readAt = c.now()
	c.valid = true
	return v, nil
}

// Peek returns the last stored value, fresh or not.
func (c *Cached[T]) Peek() (T, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.readAt, c.valid
}

// Fresh reports whether the next Get would be served from the cache.
func (c *Cached[T]) Fresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freshLocked()
}

// Invalidate forces the next Get to fetch.
func (c *Cached[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

func (c *Cached[T]) freshLocked() bool {
	return c.valid && c.now().Sub(c.readAt) <= c.ttl
}
