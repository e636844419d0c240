// Package routing defines the routing request/decision domain entities.
package routing

import (
	"errors"
	"time"
)

// Strategy selects how candidate providers are scored.
type Strategy string

const (
	StrategyCost       Strategy = "cost"       // minimize estimated price
	StrategyLatency    Strategy = "latency"    // minimize expected response time
	StrategyCapability Strategy = "capability" // maximize declared capability breadth
	StrategyFallback   Strategy = "fallback"   // walk a static priority list
	StrategyHybrid     Strategy = "hybrid"     // weighted cost/latency/reliability
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyCost, StrategyLatency, StrategyCapability, StrategyFallback, StrategyHybrid:
		return true
	}
	return false
}

// Weights are the hybrid strategy component weights.
type Weights struct {
	Cost        float64 `yaml:"cost" json:"cost"`
	Latency     float64 `yaml:"latency" json:"latency"`
	Reliability float64 `yaml:"reliability" json:"reliability"`
}

// Request describes one routing question.
type Request struct {
	ID                string        `json:"id"`
	TaskType          string        `json:"task_type,omitempty"`
	Capabilities      []string      `json:"capabilities,omitempty"`
	EstimatedTokens   int           `json:"estimated_tokens,omitempty"`
	Priority          int           `json:"priority,omitempty"`
	PreferredProvider string        `json:"preferred_provider,omitempty"`
	MaxCostPer1K      float64       `json:"max_cost_per_1k,omitempty"` // 0 = no ceiling
	MaxLatency        time.Duration `json:"max_latency,omitempty"`     // 0 = no ceiling
}

// Validate checks required fields.
func (r *Request) Validate() error {
	if r == nil {
		return errors.New("routing request is nil")
	}
	if r.ID == "" {
		return errors.New("request id is required")
	}
	return nil
}

// Candidate is one scored provider considered during routing.
type Candidate struct {
	Provider        string        `json:"provider"`
	Score           float64       `json:"score"`
	CostPer1K       float64       `json:"cost_per_1k"`
	ExpectedLatency time.Duration `json:"expected_latency"`
}

// Decision is the immutable output of one routing evaluation: the chosen
// provider, the ranked alternatives, and the ordered fallback chain to walk
// when the chosen provider fails. The chain never contains the primary
// provider and never repeats an entry.
type Decision struct {
	RequestID       string        `json:"request_id"`
	Provider        string        `json:"provider"`
	Strategy        Strategy      `json:"strategy"`
	Score           float64       `json:"score"`
	Alternatives    []Candidate   `json:"alternatives,omitempty"`
	EstimatedCost   float64       `json:"estimated_cost"`
	ExpectedLatency time.Duration `json:"expected_latency"`
	FallbackChain   []string      `json:"fallback_chain,omitempty"`
	DecidedAt       time.Time     `json:"decided_at"`
}
