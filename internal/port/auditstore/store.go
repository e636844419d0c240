// Package auditstore defines the optional persistence port for instance and
// routing-decision history. The core works fully without an implementation;
// a nil store disables auditing.
package auditstore

import (
	"context"

	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/domain/routing"
)

// Store persists instances and routing decisions for operator forensics.
// All writes are best-effort from the orchestrator's point of view: an audit
// failure is logged, never surfaced to the caller.
type Store interface {
	// SaveInstance records a spawned instance and the request that produced it.
	SaveInstance(ctx context.Context, inst *agent.Instance, requestID string) error

	// UpdateInstanceStatus records a lifecycle transition.
	UpdateInstanceStatus(ctx context.Context, id string, status agent.Status) error

	// SaveDecision records one routing decision.
	SaveDecision(ctx context.Context, d *routing.Decision) error

	// GetDecision returns the decision recorded for requestID, or nil if none.
	GetDecision(ctx context.Context, requestID string) (*routing.Decision, error)
}
