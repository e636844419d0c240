// Package ristretto implements the cache port with an in-process
// dgraph-io/ristretto cache, sized by total value bytes. It is the local
// tier of the routing decision cache.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache holds marshaled decisions keyed by request id. Cost is the value
// length in bytes, so MaxCost bounds resident size rather than entry count.
type Cache struct {
	inner *ristretto.Cache[string, []byte]
}

// New creates a cache bounded at maxCostBytes of stored values. Counter
// space is sized for entries averaging around 100 bytes.
func New(maxCostBytes int64) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.inner.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores the value with the given TTL. Admission is asynchronous; a
// value may not be visible immediately after Set returns.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.inner.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.inner.Del(key)
	return nil
}

// Wait blocks until pending writes have been admitted or dropped. Tests use
// it to make admission deterministic.
func (c *Cache) Wait() {
	c.inner.Wait()
}

func (c *Cache) Close() {
	c.inner.Close()
}
