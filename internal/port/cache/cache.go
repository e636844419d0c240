// Package cache defines the byte-value cache port. Relay keys routing
// decisions by request id; implementations may ignore the per-entry TTL when
// expiry is configured at the store level.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values. Get distinguishes a miss (ok=false) from
// a transport failure (err != nil).
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
