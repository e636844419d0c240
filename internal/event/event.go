// Package event defines the uniform event vocabulary adapters and the
// orchestrator emit, and a bounded fan-out bus for subscribers.
package event

import "time"

// Type identifies an event kind.
type Type string

const (
	TypeAgentSpawned       Type = "agent.spawned"
	TypeAgentKilled        Type = "agent.killed"
	TypeAgentStatusChanged Type = "agent.status_changed"
	TypeAgentError         Type = "agent.error"
	TypeProviderHealth     Type = "provider.health"
)

// Event is one observation in the uniform vocabulary. Observers subscribe to
// the stream without knowing which adapter produced it.
type Event struct {
	Type      Type      `json:"type"`
	AgentID   string    `json:"agent_id,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Status    string    `json:"status,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}
