// Package cache stores encoded simulation results with a time-to-live.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a byte-oriented key/value store with per-entry TTL. Values are
// copied on the way in and out.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// LRU is an in-process Cache bounded by entry count. The underlying
// expirable LRU enforces maxTTL; shorter per-entry TTLs are checked on read.
type LRU struct {
	mu    sync.Mutex
	store *expirable.LRU[string, entry]
	now   func() time.Time
}

type Option func(*LRU)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *LRU) { c.now = now }
}

// NewLRU builds an LRU holding at most size entries (0 is unbounded) for at
// most maxTTL each.
func NewLRU(size int, maxTTL time.Duration, opts ...Option) *LRU {
	c := &LRU{
		store: expirable.NewLRU[string, entry](size, nil, maxTTL),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Cache = (*LRU)(nil)

func (c *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.store.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value under key. A non-positive ttl leaves only the cache-wide
// limit in force.
func (c *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Add(key, e)
	return nil
}

func (c *LRU) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Remove(key)
	return nil
}

// Len reports the number of resident entries, expired or not.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}
