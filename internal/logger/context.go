package logger

import "context"

// ctxKey is a private type to prevent collisions with other context keys.
type ctxKey int

const (
	requestIDKey ctxKey = iota
	agentIDKey
)

// WithRequestID returns a new context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithAgentID returns a new context carrying the agent instance ID, so logs
// emitted deep inside an adapter can be correlated to a session.
func WithAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, agentIDKey, id)
}

// AgentID extracts the agent instance ID from the context, or "".
func AgentID(ctx context.Context) string {
	id, _ := ctx.Value(agentIDKey).(string)
	return id
}
