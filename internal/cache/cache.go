package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is a stored value and the time its computation started, moved
// forward when needed so the value stays fresh for at least half a TTL.
type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Cache is a keyed, time-to-live memo shared by concurrent callers.
//
// A miss or an expired entry is recomputed by exactly one caller per key;
// other callers for the same key wait for that result instead of running
// the producer themselves.
type Cache[T any] struct {
	ttl time.Duration
	now func() time.Time // injectable clock for testing

	mu      sync.Mutex
	entries map[string]entry[T]

	group singleflight.Group
}

// New creates a Cache whose entries expire after ttl. A zero ttl keeps
// entries until they are invalidated.
//
// An entry is aged from the moment its producer started. A producer that
// runs longer than ttl/2 gets its entry aged from ttl/2 before it finished.
func New[T any](ttl time.Duration) *Cache[T] {
	return NewWithClock[T](ttl, time.Now)
}

// NewWithClock is New with an explicit clock.
func NewWithClock[T any](ttl time.Duration, now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry[T]),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key while it is fresh. Otherwise it
// calls produce, stores the result and returns it. Errors from produce are
// returned to every waiting caller and are not stored.
//
// Cancelling ctx releases the caller but not an in-flight produce call.
func (c *Cache[T]) Get(ctx context.Context, key string, produce func() (T, error)) (T, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// Another flight may have stored a fresh value since our lookup.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		startedAt := c.now()
		v, err := produce()
		if err != nil {
			return nil, err
		}
		storedAt := startedAt
		if c.ttl > 0 {
			if floor := c.now().Add(-c.ttl / 2); storedAt.Before(floor) {
				storedAt = floor
			}
		}
		c.mu.Lock()
		c.entries[key] = entry[T]{value: v, storedAt: storedAt}
		c.mu.Unlock()
		return v, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) lookup(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Invalidate drops the entry for key, forcing the next Get to recompute.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
