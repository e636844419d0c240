// Package health defines per-provider health classification entities.
package health

import "time"

// Class is the derived health classification of a provider.
type Class string

const (
	ClassHealthy   Class = "healthy"
	ClassDegraded  Class = "degraded"
	ClassUnhealthy Class = "unhealthy"
	ClassUnknown   Class = "unknown"
)

// CircuitState is the per-provider circuit breaker state.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// Record is a read-only snapshot of one provider's rolling statistics.
// Only the health monitor mutates the underlying data; readers may observe
// slightly stale values.
type Record struct {
	Provider            string        `json:"provider"`
	Class               Class         `json:"class"`
	SuccessRate         float64       `json:"success_rate"`
	AvgLatency          time.Duration `json:"avg_latency"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Circuit             CircuitState  `json:"circuit"`
	Observations        int           `json:"observations"`
	LastFailure         string        `json:"last_failure,omitempty"`
	UpdatedAt           time.Time     `json:"updated_at"`
}
