// Package agent defines the agent instance domain entities.
package agent

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of an agent instance.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusError   Status = "error"
)

// Instance is a long-lived remote execution session hosted by a provider.
// The orchestrator owns the Instance for its lifetime; the provider-side
// session handle stays private to the adapter that created it.
type Instance struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Status     Status            `json:"status"`
	Runtime    string            `json:"runtime"`
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	CreatedAt  time.Time         `json:"created_at"`
	LastActive time.Time         `json:"last_active"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so callers never hold live references.
func (i *Instance) Clone() *Instance {
	out := *i
	if i.Metadata != nil {
		out.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// SpawnRequest describes a new agent session. Immutable once submitted.
type SpawnRequest struct {
	Name     string `json:"name"`
	Provider string `json:"provider,omitempty"` // explicit override, empty = routed

	// PreferredProvider is a soft preference for routed spawns: promoted to
	// the front of the ranking when it survives filtering, ignored otherwise.
	PreferredProvider string `json:"preferred_provider,omitempty"`

	Model           string        `json:"model,omitempty"`
	Capabilities    []string      `json:"capabilities,omitempty"`
	Tools           []string      `json:"tools,omitempty"`
	SystemPrompt    string        `json:"system_prompt,omitempty"`
	WorkDir         string        `json:"work_dir,omitempty"`
	Timeout         time.Duration `json:"timeout,omitempty"`
	EstimatedTokens int           `json:"estimated_tokens,omitempty"`

	// MaxCostPer1K and MaxLatency are routing ceilings; zero means no ceiling.
	MaxCostPer1K float64       `json:"max_cost_per_1k,omitempty"`
	MaxLatency   time.Duration `json:"max_latency,omitempty"`

	// DisableFallback makes a failed spawn surface immediately instead of
	// walking the fallback chain.
	DisableFallback bool `json:"disable_fallback,omitempty"`
	// MaxAttempts overrides the configured attempt budget across the whole
	// chain; zero means use the configured default.
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// Validate checks required fields. Validation failures are never retried.
func (r *SpawnRequest) Validate() error {
	if r == nil {
		return errors.New("spawn request is nil")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max_attempts must not be negative")
	}
	return nil
}

// ExecResult is the outcome of one command on a live instance.
// Returned by value semantics; never mutated after return.
type ExecResult struct {
	Stdout   string            `json:"stdout"`
	Stderr   string            `json:"stderr"`
	ExitCode int               `json:"exit_code"`
	Duration time.Duration     `json:"duration"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
