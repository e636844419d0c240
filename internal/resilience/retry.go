package resilience

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy bounds a retried operation: total attempts, initial backoff, and the
// backoff ceiling. Delays double between attempts up to Cap.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// DefaultPolicy mirrors the fallback-walk defaults: three attempts starting at
// 200ms.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Base: 200 * time.Millisecond, Cap: 5 * time.Second}
}

// WithRetry runs fn under p with exponential backoff. fn signals a retryable
// failure by wrapping its error with Transient; any other error aborts
// immediately. Context cancellation stops the loop between attempts.
func WithRetry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Base <= 0 {
		p.Base = 200 * time.Millisecond
	}

	b := retry.NewExponential(p.Base)
	if p.Cap > 0 {
		b = retry.WithCappedDuration(p.Cap, b)
	}
	b = retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)

	return retry.Do(ctx, b, fn)
}

// Transient marks err as retryable for WithRetry.
func Transient(err error) error {
	return retry.RetryableError(err)
}
