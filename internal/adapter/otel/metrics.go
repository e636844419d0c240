package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "relay"

// Metrics holds the routing and lifecycle instruments and implements the
// orchestrator's metrics hook.
type Metrics struct {
	spawnAttempts metric.Int64Counter
	execCompleted metric.Int64Counter
	fallbacks     metric.Int64Counter
	decisions     metric.Int64Counter
	spawnDuration metric.Float64Histogram
	execDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.spawnAttempts, err = meter.Int64Counter("relay.spawn.attempts",
		metric.WithDescription("Spawn attempts per provider and outcome"))
	if err != nil {
		return nil, err
	}

	m.execCompleted, err = meter.Int64Counter("relay.exec.completed",
		metric.WithDescription("Exec calls per provider and outcome"))
	if err != nil {
		return nil, err
	}

	m.fallbacks, err = meter.Int64Counter("relay.fallbacks",
		metric.WithDescription("Session migrations between providers"))
	if err != nil {
		return nil, err
	}

	m.decisions, err = meter.Int64Counter("relay.routing.decisions",
		metric.WithDescription("Routing decisions per strategy"))
	if err != nil {
		return nil, err
	}

	m.spawnDuration, err = meter.Float64Histogram("relay.spawn.duration_seconds",
		metric.WithDescription("Spawn duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.execDuration, err = meter.Float64Histogram("relay.exec.duration_seconds",
		metric.WithDescription("Exec duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// SpawnAttempt records one spawn attempt against a provider.
func (m *Metrics) SpawnAttempt(ctx context.Context, providerName string, ok bool, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", providerName),
		attribute.Bool("ok", ok),
	)
	m.spawnAttempts.Add(ctx, 1, attrs)
	m.spawnDuration.Record(ctx, d.Seconds(), attrs)
}

// ExecCompleted records one exec call against a provider.
func (m *Metrics) ExecCompleted(ctx context.Context, providerName string, ok bool, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", providerName),
		attribute.Bool("ok", ok),
	)
	m.execCompleted.Add(ctx, 1, attrs)
	m.execDuration.Record(ctx, d.Seconds(), attrs)
}

// FallbackTriggered records a session migration between providers.
func (m *Metrics) FallbackTriggered(ctx context.Context, from, to string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// DecisionMade records one routing decision.
func (m *Metrics) DecisionMade(ctx context.Context, strategy string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
	))
}
