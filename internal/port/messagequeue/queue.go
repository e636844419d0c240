// Package messagequeue defines the message queue port used by queue-backed
// provider adapters.
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing, subscribing, and request-reply.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Request sends a message and waits for a single reply. The deadline
	// comes from ctx.
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Close shuts down the queue connection.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for the remote session protocol. A worker serving
// provider "p" listens on sessions.p.*.
const (
	SubjectSessionSpawn  = "sessions.%s.spawn"
	SubjectSessionExec   = "sessions.%s.exec"
	SubjectSessionStatus = "sessions.%s.status"
	SubjectSessionKill   = "sessions.%s.kill"
)
