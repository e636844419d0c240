// Package routing implements provider selection: filter candidates by
// capability, circuit state, and request ceilings, score the survivors under
// the configured strategy, and emit an immutable decision with an ordered
// fallback chain.
package routing

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/relayops/relay/internal/domain/health"
	"github.com/relayops/relay/internal/domain/routing"
	"github.com/relayops/relay/internal/port/provider"
)

// HealthSource exposes the per-provider statistics the engine scores with.
type HealthSource interface {
	Record(provider string) health.Record
}

// Options configure the engine.
type Options struct {
	Strategy       routing.Strategy
	Weights        routing.Weights // hybrid only
	MaxChainLength int             // fallback chain cap
	Priority       []string        // fallback strategy order
}

// Engine scores registered providers for routing requests. Identical inputs
// always produce identical decisions: scoring is pure and ties break on
// provider name.
type Engine struct {
	reg    *provider.Registry
	health HealthSource
	opts   Options
	log    *slog.Logger
	now    func() time.Time // for testing
}

// NewEngine creates an Engine. A zero MaxChainLength falls back to 8; an
// empty strategy falls back to hybrid.
func NewEngine(reg *provider.Registry, hs HealthSource, opts Options, log *slog.Logger) *Engine {
	if opts.Strategy == "" {
		opts.Strategy = routing.StrategyHybrid
	}
	if opts.MaxChainLength < 1 {
		opts.MaxChainLength = 8
	}
	if opts.Weights == (routing.Weights{}) {
		opts.Weights = routing.Weights{Cost: 0.3, Latency: 0.3, Reliability: 0.4}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{reg: reg, health: hs, opts: opts, log: log, now: time.Now}
}

// Route evaluates req against the current registry and health state.
// Returns provider.ErrNoProviderAvailable when no registered provider
// survives filtering.
func (e *Engine) Route(req *routing.Request) (*routing.Decision, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	survivors := e.filter(req)
	if len(survivors) == 0 {
		return nil, fmt.Errorf("route %s: %w", req.ID, provider.ErrNoProviderAvailable)
	}

	ranked := e.score(survivors)
	e.promotePreferred(req.PreferredProvider, ranked)

	primary := ranked[0]
	chain := make([]string, 0, len(ranked)-1)
	for _, c := range ranked[1:] {
		if len(chain) == e.opts.MaxChainLength {
			break
		}
		chain = append(chain, c.Provider)
	}

	d := &routing.Decision{
		RequestID:       req.ID,
		Provider:        primary.Provider,
		Strategy:        e.opts.Strategy,
		Score:           primary.Score,
		Alternatives:    ranked[1:],
		EstimatedCost:   primary.CostPer1K * float64(req.EstimatedTokens) / 1000,
		ExpectedLatency: primary.ExpectedLatency,
		FallbackChain:   chain,
		DecidedAt:       e.now(),
	}

	e.log.Debug("routing decision",
		"request_id", req.ID,
		"strategy", string(e.opts.Strategy),
		"provider", d.Provider,
		"score", d.Score,
		"chain", chain)

	return d, nil
}

// filter drops providers that cannot serve the request: missing capabilities,
// an open circuit, or a descriptor exceeding the request's cost or latency
// ceiling.
func (e *Engine) filter(req *routing.Request) []provider.Descriptor {
	all := e.reg.Descriptors()
	out := make([]provider.Descriptor, 0, len(all))
	for _, desc := range all {
		if !desc.HasCapabilities(req.Capabilities) {
			continue
		}
		if req.MaxCostPer1K > 0 && desc.CostPer1K > req.MaxCostPer1K {
			continue
		}
		if req.MaxLatency > 0 && desc.TypicalLatency > req.MaxLatency {
			continue
		}
		if e.health.Record(desc.Name).Circuit == health.CircuitOpen {
			continue
		}
		out = append(out, desc)
	}
	return out
}

// score ranks survivors best-first. Ties break on provider name so the
// ranking is total and reproducible.
func (e *Engine) score(survivors []provider.Descriptor) []routing.Candidate {
	ranked := make([]routing.Candidate, len(survivors))
	for i, desc := range survivors {
		ranked[i] = routing.Candidate{
			Provider:        desc.Name,
			Score:           e.scoreOne(desc, survivors),
			CostPer1K:       desc.CostPer1K,
			ExpectedLatency: desc.TypicalLatency,
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Provider < ranked[j].Provider
	})
	return ranked
}

func (e *Engine) scoreOne(desc provider.Descriptor, survivors []provider.Descriptor) float64 {
	switch e.opts.Strategy {
	case routing.StrategyCost:
		return -desc.CostPer1K
	case routing.StrategyLatency:
		return -desc.TypicalLatency.Seconds()
	case routing.StrategyCapability:
		return float64(len(desc.Capabilities))
	case routing.StrategyFallback:
		for i, name := range e.opts.Priority {
			if name == desc.Name {
				return -float64(i)
			}
		}
		// Unlisted providers rank after every listed one.
		return -float64(len(e.opts.Priority))
	default: // hybrid
		return e.hybridScore(desc, survivors)
	}
}

// hybridScore is a weighted sum of normalized cost, normalized latency, and
// observed reliability. Cost and latency are normalized across the survivor
// set so each component lands in [0,1]; a provider with no observations gets
// reliability 1.0 rather than being punished for being new.
func (e *Engine) hybridScore(desc provider.Descriptor, survivors []provider.Descriptor) float64 {
	minCost, maxCost := survivors[0].CostPer1K, survivors[0].CostPer1K
	minLat, maxLat := survivors[0].TypicalLatency, survivors[0].TypicalLatency
	for _, d := range survivors[1:] {
		if d.CostPer1K < minCost {
			minCost = d.CostPer1K
		}
		if d.CostPer1K > maxCost {
			maxCost = d.CostPer1K
		}
		if d.TypicalLatency < minLat {
			minLat = d.TypicalLatency
		}
		if d.TypicalLatency > maxLat {
			maxLat = d.TypicalLatency
		}
	}

	costScore := 1.0
	if maxCost > minCost {
		costScore = 1 - (desc.CostPer1K-minCost)/(maxCost-minCost)
	}
	latScore := 1.0
	if maxLat > minLat {
		latScore = 1 - float64(desc.TypicalLatency-minLat)/float64(maxLat-minLat)
	}

	rel := 1.0
	if rec := e.health.Record(desc.Name); rec.Class != health.ClassUnknown {
		rel = rec.SuccessRate
	}

	w := e.opts.Weights
	return w.Cost*costScore + w.Latency*latScore + w.Reliability*rel
}

// promotePreferred moves the caller's preferred provider to the front of the
// ranking when it survived filtering. A preference for an excluded or
// unregistered provider is ignored.
func (e *Engine) promotePreferred(preferred string, ranked []routing.Candidate) {
	if preferred == "" {
		return
	}
	for i, c := range ranked {
		if c.Provider == preferred {
			copy(ranked[1:i+1], ranked[:i])
			ranked[0] = c
			return
		}
	}
}
