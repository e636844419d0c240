package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by adapters, the routing engine, and the
// orchestrator. Callers classify failures with errors.Is.
var (
	// ErrAdapterNotFound is a registry lookup miss. Never retried.
	ErrAdapterNotFound = errors.New("adapter not found")

	// ErrNoProviderAvailable means routing found no eligible candidate.
	// Surfaced directly to the caller without any adapter call.
	ErrNoProviderAvailable = errors.New("no eligible provider available")

	// ErrSpawnFailed is a single-provider spawn failure. Retried via the
	// fallback chain.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrSpawnExhausted means every chain entry failed. Never retried.
	ErrSpawnExhausted = errors.New("fallback chain exhausted")

	// ErrAgentNotFound is an operation on an unknown or removed instance id.
	// Never retried: the id is gone.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrExecutionFailed is a command failure on a live instance. Retried via
	// fallback-and-respawn when policy allows.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrBusy is a concurrent exec collision on one instance. Fatal to that
	// call; the caller may retry later.
	ErrBusy = errors.New("agent busy")

	// ErrTimeout means the operation deadline was exceeded. Triggers a
	// best-effort kill and is recorded as a health failure.
	ErrTimeout = errors.New("operation timed out")
)

// Attempt records the terminal reason one provider gave during a chain walk.
type Attempt struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// SpawnExhaustedError carries the per-provider failure reasons, in chain
// order, after the whole fallback chain failed.
type SpawnExhaustedError struct {
	RequestID string
	Attempts  []Attempt
}

func (e *SpawnExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Provider, a.Reason))
	}
	return fmt.Sprintf("spawn exhausted for request %s: [%s]", e.RequestID, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrSpawnExhausted) match.
func (e *SpawnExhaustedError) Is(target error) bool {
	return target == ErrSpawnExhausted
}

// Providers returns the attempted provider ids in chain order.
func (e *SpawnExhaustedError) Providers() []string {
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Provider)
	}
	return out
}
