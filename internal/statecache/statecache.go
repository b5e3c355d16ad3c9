// Package statecache keeps short-lived copies of the signed-in user, their
// profile and stats so a restart can answer before the network does.
package statecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTTL is how long an entry stays fresh.
const DefaultTTL = 5 * time.Minute

// Keys used by the account manager.
const (
	KeyUser    = "user"
	KeyProfile = "profile"
	KeyStats   = "stats"
)

// Backend stores raw entries.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type entry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
}

// Cache wraps values with the time they were stored. Entries older than
// the TTL are treated as absent and deleted when read.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache on backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{backend: backend, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store saves v under key, stamped with the current time.
func (c *Cache) Store(ctx context.Context, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json.Marshal(%s) > %w", key, err)
	}
	data, err := json.Marshal(entry{Value: value, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("json.Marshal(entry) > %w", err)
	}
	if err := c.backend.Set(ctx, key, data); err != nil {
		return fmt.Errorf("backend.Set(%s) > %w", key, err)
	}
	return nil
}

// Load decodes the entry under key into dst. It reports false when the
// entry is missing, expired or unreadable.
func (c *Cache) Load(ctx context.Context, key string, dst any) (bool, error) {
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("backend.Get(%s) > %w", key, err)
	}
	if !ok {
		return false, nil
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || c.expired(e) {
		if err := c.backend.Delete(ctx, key); err != nil {
			return false, fmt.Errorf("backend.Delete(%s) > %w", key, err)
		}
		return false, nil
	}
	if err := json.Unmarshal(e.Value, dst); err != nil {
		return false, fmt.Errorf("json.Unmarshal(%s) > %w", key, err)
	}
	return true, nil
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(time.UnixMilli(e.Timestamp)) > c.ttl
}

// Clear deletes every given key.
func (c *Cache) Clear(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("backend.Delete(%s) > %w", key, err)
		}
	}
	return nil
}
