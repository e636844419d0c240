// Package health tracks per-provider success rates over a rolling window and
// drives one circuit breaker per provider.
package health

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/relayops/relay/internal/domain/health"
	"github.com/relayops/relay/internal/resilience"
)

// Classification thresholds over the rolling window.
const (
	healthyRate  = 0.95
	degradedRate = 0.5
)

// Options configure the monitor.
type Options struct {
	WindowSize       int           // rolling observation window per provider
	FailureThreshold int           // consecutive failures that open the circuit
	CoolDown         time.Duration // open -> half-open interval
}

// DefaultOptions returns the monitor defaults.
func DefaultOptions() Options {
	return Options{WindowSize: 20, FailureThreshold: 5, CoolDown: 30 * time.Second}
}

type sample struct {
	ok      bool
	latency time.Duration
}

// track is one provider's rolling window plus its breaker.
type track struct {
	samples             []sample // ring buffer, len == cap == WindowSize
	next                int
	count               int
	consecutiveFailures int
	lastFailure         string
	breaker             *resilience.Breaker
	updatedAt           time.Time
}

// Monitor records call outcomes per provider and classifies each provider
// from its recent success rate. Providers are tracked lazily on first
// observation; an unobserved provider reports ClassUnknown with a closed
// circuit.
type Monitor struct {
	mu    sync.RWMutex
	opts  Options
	log   *slog.Logger
	track map[string]*track
	now   func() time.Time // for testing
}

// NewMonitor creates a Monitor with the given options. Zero or negative
// option fields fall back to defaults.
func NewMonitor(opts Options, log *slog.Logger) *Monitor {
	def := DefaultOptions()
	if opts.WindowSize < 1 {
		opts.WindowSize = def.WindowSize
	}
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = def.FailureThreshold
	}
	if opts.CoolDown <= 0 {
		opts.CoolDown = def.CoolDown
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		opts:  opts,
		log:   log,
		track: make(map[string]*track),
		now:   time.Now,
	}
}

// RecordSuccess notes a successful call to provider with its observed latency.
func (m *Monitor) RecordSuccess(provider string, latency time.Duration) {
	m.mu.Lock()
	tr := m.get(provider)
	tr.push(sample{ok: true, latency: latency})
	tr.consecutiveFailures = 0
	tr.updatedAt = m.now()
	m.mu.Unlock()

	tr.breaker.RecordSuccess()
}

// RecordFailure notes a failed call to provider with a short reason.
func (m *Monitor) RecordFailure(provider, reason string) {
	m.mu.Lock()
	tr := m.get(provider)
	tr.push(sample{ok: false})
	tr.consecutiveFailures++
	tr.lastFailure = reason
	tr.updatedAt = m.now()
	fails := tr.consecutiveFailures
	m.mu.Unlock()

	tr.breaker.RecordFailure()

	if fails == m.opts.FailureThreshold {
		m.log.Warn("provider circuit opened",
			"provider", provider,
			"consecutive_failures", fails,
			"reason", reason)
	}
}

// Allow reports whether provider's circuit admits a call right now. In the
// half-open state only one probe gets through per cool-down.
func (m *Monitor) Allow(provider string) bool {
	m.mu.Lock()
	tr := m.get(provider)
	m.mu.Unlock()
	return tr.breaker.Allow()
}

// ReturnProbe hands back an unused half-open probe taken by Allow, so a
// caller that bailed out before reaching the provider does not leave the
// circuit waiting forever for an outcome.
func (m *Monitor) ReturnProbe(provider string) {
	m.mu.Lock()
	tr := m.get(provider)
	m.mu.Unlock()
	tr.breaker.ReturnProbe()
}

// CircuitState returns provider's circuit position. Unobserved providers are
// closed.
func (m *Monitor) CircuitState(provider string) health.CircuitState {
	m.mu.RLock()
	tr, ok := m.track[provider]
	m.mu.RUnlock()
	if !ok {
		return health.CircuitClosed
	}
	return circuitState(tr.breaker.State())
}

// Record returns a snapshot of provider's rolling statistics.
func (m *Monitor) Record(provider string) health.Record {
	m.mu.RLock()
	tr, ok := m.track[provider]
	if !ok {
		m.mu.RUnlock()
		return health.Record{
			Provider: provider,
			Class:    health.ClassUnknown,
			Circuit:  health.CircuitClosed,
		}
	}
	rec := tr.snapshot(provider)
	m.mu.RUnlock()

	rec.Circuit = circuitState(tr.breaker.State())
	return rec
}

// Snapshot returns records for every tracked provider, sorted by name.
func (m *Monitor) Snapshot() []health.Record {
	m.mu.RLock()
	names := make([]string, 0, len(m.track))
	for name := range m.track {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	out := make([]health.Record, 0, len(names))
	for _, name := range names {
		out = append(out, m.Record(name))
	}
	return out
}

// get returns the track for provider, creating it if needed.
// Must be called with m.mu held for writing.
func (m *Monitor) get(provider string) *track {
	tr, ok := m.track[provider]
	if !ok {
		tr = &track{
			samples: make([]sample, m.opts.WindowSize),
			// Indirect through m.now so a test can swap the clock after
			// tracks exist.
			breaker: resilience.NewBreakerWithClock(m.opts.FailureThreshold, m.opts.CoolDown, func() time.Time { return m.now() }),
		}
		m.track[provider] = tr
	}
	return tr
}

func (t *track) push(s sample) {
	t.samples[t.next] = s
	t.next = (t.next + 1) % len(t.samples)
	if t.count < len(t.samples) {
		t.count++
	}
}

// snapshot computes the record minus the circuit field.
// Must be called with the monitor lock held.
func (t *track) snapshot(provider string) health.Record {
	var succ int
	var total time.Duration
	for i := 0; i < t.count; i++ {
		s := t.samples[i]
		if s.ok {
			succ++
			total += s.latency
		}
	}

	rec := health.Record{
		Provider:            provider,
		Class:               health.ClassUnknown,
		ConsecutiveFailures: t.consecutiveFailures,
		Observations:        t.count,
		LastFailure:         t.lastFailure,
		UpdatedAt:           t.updatedAt,
	}
	if t.count == 0 {
		return rec
	}

	rec.SuccessRate = float64(succ) / float64(t.count)
	if succ > 0 {
		rec.AvgLatency = total / time.Duration(succ)
	}
	rec.Class = classify(rec.SuccessRate)
	return rec
}

func classify(rate float64) health.Class {
	switch {
	case rate >= healthyRate:
		return health.ClassHealthy
	case rate >= degradedRate:
		return health.ClassDegraded
	default:
		return health.ClassUnhealthy
	}
}

func circuitState(s resilience.State) health.CircuitState {
	switch s {
	case resilience.StateOpen:
		return health.CircuitOpen
	case resilience.StateHalfOpen:
		return health.CircuitHalfOpen
	default:
		return health.CircuitClosed
	}
}
