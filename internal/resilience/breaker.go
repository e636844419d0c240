// Package resilience provides reliability patterns for provider calls.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the circuit position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker trips after a run of consecutive failures and rejects calls until a
// cool-down elapses. After the cool-down it admits exactly one probe: success
// closes the circuit, failure reopens it and restarts the cool-down.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	coolDown    time.Duration
	openedAt    time.Time
	probing     bool             // a half-open probe is in flight
	now         func() time.Time // for testing
}

// NewBreaker creates a circuit breaker that opens after maxFailures
// consecutive failures and stays open for coolDown before allowing a probe.
func NewBreaker(maxFailures int, coolDown time.Duration) *Breaker {
	return NewBreakerWithClock(maxFailures, coolDown, time.Now)
}

// NewBreakerWithClock is NewBreaker with an injected time source.
func NewBreakerWithClock(maxFailures int, coolDown time.Duration, now func() time.Time) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		coolDown:    coolDown,
		now:         now,
	}
}

// Allow reports whether a call may proceed right now. In the half-open state
// only the first caller gets through; the rest are rejected until the probe
// outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

// RecordSuccess notes a successful call. It closes the circuit from the
// closed or half-open state. A success reported while the circuit is open
// came from a call admitted before the trip and does not close it; the
// open state only exits through the cool-down.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance()

	b.failures = 0
	if b.state != StateOpen {
		b.state = StateClosed
		b.probing = false
	}
}

// ReturnProbe hands back a probe token taken by Allow without recording an
// outcome, for callers that never reached the guarded operation. Only the
// probe holder may call it.
func (b *Breaker) ReturnProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
	}
}

// RecordFailure notes a failed call. In the closed state it counts toward the
// trip threshold; in the half-open state it reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance()

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.state = StateOpen
		b.openedAt = b.now()
		b.probing = false
	}
}

// State returns the current circuit position, accounting for an elapsed
// cool-down.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance()
	return b.state
}

// ConsecutiveFailures returns the current failure run length.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Execute runs fn under the breaker, recording the outcome.
// Returns ErrCircuitOpen if the call is not admitted.
func (b *Breaker) Execute(fn func() error) error {
	if !b.Allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}

	b.RecordSuccess()
	return nil
}

// advance moves open to half-open once the cool-down has elapsed.
// Must be called with b.mu held.
func (b *Breaker) advance() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.coolDown {
		b.state = StateHalfOpen
		b.probing = false
	}
}
