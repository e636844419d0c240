// Package tiered layers the in-process ristretto cache over the shared NATS
// KV bucket so routing decision lookups stay local after the first fetch.
package tiered

import (
	"context"
	"time"

	"github.com/relayops/relay/internal/port/cache"
)

// Cache reads through an L1 (in-process) into an L2 (shared) cache and
// writes to both. An L1 read failure falls through to L2; only L2 is
// treated as authoritative.
type Cache struct {
	l1          cache.Cache
	l2          cache.Cache
	backfillTTL time.Duration
}

// New creates a tiered cache. backfillTTL bounds how long an entry copied
// up from L2 lives in L1.
func New(l1, l2 cache.Cache, backfillTTL time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, backfillTTL: backfillTTL}
}

// Get checks L1 first, then L2, copying an L2 hit up into L1.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	if val, found, err := c.l1.Get(ctx, key); err == nil && found {
		return val, true, nil
	}

	val, found, err := c.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	_ = c.l1.Set(ctx, key, val, c.backfillTTL)
	return val, true, nil
}

// Set writes to both levels.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.l2.Set(ctx, key, value, ttl)
}

// Delete removes the key from both levels.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		return err
	}
	return c.l2.Delete(ctx, key)
}
