// Package broadcast defines the port for pushing real-time events to connected observers.
package broadcast

import "context"

// Broadcaster sends typed events to all connected observers (dashboards, loggers).
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected observers.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
