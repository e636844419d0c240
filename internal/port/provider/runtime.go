// Package provider defines the runtime contract every provider adapter must
// satisfy, the error taxonomy shared across adapters, and the registry that
// resolves adapters by name.
package provider

import (
	"context"
	"time"

	"github.com/relayops/relay/internal/domain/agent"
)

// Runtime is the uniform agent-lifecycle contract. Adapters translate these
// four operations into one specific provider's session protocol; the core
// consumes them as a black box. Every operation may block on network I/O and
// must honor context cancellation.
type Runtime interface {
	// Name returns the unique identifier for this adapter (e.g. "shell", "mcp").
	Name() string

	// Spawn creates a new remote session. Safe to retry with a fresh request
	// after a failure; a failed spawn must not leave a usable session behind.
	Spawn(ctx context.Context, req *agent.SpawnRequest) (*agent.Instance, error)

	// Exec runs one command on a live session. Calling Exec on a non-running
	// or unknown instance fails with ErrAgentNotFound.
	Exec(ctx context.Context, agentID, command string) (*agent.ExecResult, error)

	// Status reports the session's lifecycle status, or ErrAgentNotFound.
	Status(ctx context.Context, agentID string) (agent.Status, error)

	// Kill terminates the session. Killing an already-stopped instance is a
	// no-op success, so cleanup during fallback stays idempotent.
	Kill(ctx context.Context, agentID string) error
}

// Descriptor is the static registry metadata for one provider, used by the
// routing engine before any live health data exists.
type Descriptor struct {
	Name           string        `json:"name"`
	Capabilities   []string      `json:"capabilities,omitempty"`
	MaxConcurrent  int           `json:"max_concurrent,omitempty"` // 0 = unbounded
	CostPer1K      float64       `json:"cost_per_1k"`              // USD per 1k tokens, static hint
	TypicalLatency time.Duration `json:"typical_latency"`          // static hint
	DefaultModel   string        `json:"default_model,omitempty"`
}

// HasCapabilities reports whether the declared capability set is a superset
// of required.
func (d Descriptor) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	declared := make(map[string]struct{}, len(d.Capabilities))
	for _, c := range d.Capabilities {
		declared[c] = struct{}{}
	}
	for _, c := range required {
		if _, ok := declared[c]; !ok {
			return false
		}
	}
	return true
}
