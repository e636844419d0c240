package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "relay"

// StartSpawnSpan starts a span for a session spawn. providerName is the
// explicit override when set, empty for routed spawns.
func StartSpawnSpan(ctx context.Context, name, providerName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "spawn",
		trace.WithAttributes(
			attribute.String("agent.name", name),
			attribute.String("provider", providerName),
		),
	)
}

// StartExecSpan starts a span for one command execution on a session.
func StartExecSpan(ctx context.Context, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "exec",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
		),
	)
}

// StartKillSpan starts a span for a session termination.
func StartKillSpan(ctx context.Context, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "kill",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
		),
	)
}
