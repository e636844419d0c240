// Package natskv implements the cache port on a NATS JetStream KV bucket.
// It is the shared tier of the decision cache: entries survive orchestrator
// restarts and are visible to every instance on the same cluster.
package natskv

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache adapts a JetStream KeyValue bucket to the cache port. Expiry is a
// bucket property, so the per-entry TTL passed to Set is ignored.
type Cache struct {
	kv jetstream.KeyValue
}

func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// Get reads key from the bucket. A revision that never existed or has been
// purged reports a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Set writes key unconditionally, overwriting any previous revision.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, key, value)
	return err
}

// Delete removes key. Deleting an absent key succeeds.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return err
	}
	return nil
}
