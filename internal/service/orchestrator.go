// Package service contains the multi-provider orchestrator: the single
// process-facing surface for spawning, driving, and retiring agent sessions
// across provider adapters.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/domain/health"
	"github.com/relayops/relay/internal/domain/routing"
	"github.com/relayops/relay/internal/event"
	healthmon "github.com/relayops/relay/internal/health"
	"github.com/relayops/relay/internal/port/auditstore"
	"github.com/relayops/relay/internal/port/cache"
	"github.com/relayops/relay/internal/port/provider"
	"github.com/relayops/relay/internal/resilience"
	routingeng "github.com/relayops/relay/internal/routing"
)

// Metrics is the instrumentation hook the orchestrator reports into.
// A nil Metrics disables instrumentation.
type Metrics interface {
	SpawnAttempt(ctx context.Context, providerName string, ok bool, d time.Duration)
	ExecCompleted(ctx context.Context, providerName string, ok bool, d time.Duration)
	FallbackTriggered(ctx context.Context, from, to string)
	DecisionMade(ctx context.Context, strategy string)
}

// Options configure orchestrator behavior.
type Options struct {
	DefaultModel    string
	SpawnTimeout    time.Duration
	ExecTimeout     time.Duration
	FallbackEnabled bool
	Retry           resilience.Policy
	HealthInterval  time.Duration // provider.health event period for Start
}

// session is the orchestrator-side record of one logical agent. The logical
// id handed to callers survives fallback respawns; providerID is the
// adapter-side session id and changes when the session moves providers.
type session struct {
	inst       *agent.Instance
	providerID string
	decision   *routing.Decision
	chain      []string // remaining fallback providers, in order
	spawnReq   agent.SpawnRequest
	busy       bool
}

// ProviderStatus pairs a provider's static descriptor with its live health.
type ProviderStatus struct {
	Descriptor provider.Descriptor `json:"descriptor"`
	Health     health.Record       `json:"health"`
}

// Orchestrator owns the full session lifecycle: it routes spawn requests,
// walks fallback chains, serializes exec per session, converts timeouts into
// kills, and keeps the health monitor fed with every outcome.
type Orchestrator struct {
	reg     *provider.Registry
	monitor *healthmon.Monitor
	engine  *routingeng.Engine
	bus     *event.Bus
	audit   auditstore.Store // nil disables auditing
	cache   cache.Cache      // nil disables the decision cache
	metrics Metrics          // nil disables instrumentation
	log     *slog.Logger
	opts    Options

	mu         sync.Mutex
	sessions   map[string]*session
	tombstones map[string]struct{}
	sem        map[string]*semaphore.Weighted // per-provider slots, nil entry = unbounded

	now func() time.Time // for testing
}

// New creates an Orchestrator. reg, monitor, and engine are required; bus,
// audit, cache, and metrics may be nil.
func New(reg *provider.Registry, monitor *healthmon.Monitor, engine *routingeng.Engine,
	bus *event.Bus, audit auditstore.Store, c cache.Cache, metrics Metrics,
	opts Options, log *slog.Logger) *Orchestrator {

	if opts.SpawnTimeout <= 0 {
		opts.SpawnTimeout = 30 * time.Second
	}
	if opts.ExecTimeout <= 0 {
		opts.ExecTimeout = 2 * time.Minute
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = resilience.DefaultPolicy()
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		reg:        reg,
		monitor:    monitor,
		engine:     engine,
		bus:        bus,
		audit:      audit,
		cache:      c,
		metrics:    metrics,
		log:        log,
		opts:       opts,
		sessions:   make(map[string]*session),
		tombstones: make(map[string]struct{}),
		sem:        make(map[string]*semaphore.Weighted),
		now:        time.Now,
	}
}

// Start runs background upkeep until ctx is canceled: it publishes periodic
// provider.health events so websocket observers see circuit transitions
// without polling.
func (o *Orchestrator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(o.opts.HealthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.publishHealth()
			}
		}
	}()
}

func (o *Orchestrator) publishHealth() {
	if o.bus == nil {
		return
	}
	for _, rec := range o.monitor.Snapshot() {
		o.bus.Publish(event.Event{
			Type:     event.TypeProviderHealth,
			Provider: rec.Provider,
			Status:   string(rec.Class),
			At:       o.now(),
		})
	}
}

// Spawn routes req, then walks the decision's fallback chain until one
// provider delivers a session. Providers with an open circuit are skipped
// without an adapter call. Returns the caller-facing instance; its id is
// stable for the session's lifetime even if a later exec migrates it to
// another provider.
func (o *Orchestrator) Spawn(ctx context.Context, req *agent.SpawnRequest) (*agent.Instance, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}

	spawnReq := *req
	if spawnReq.Model == "" {
		spawnReq.Model = o.opts.DefaultModel
	}
	if spawnReq.Timeout <= 0 {
		spawnReq.Timeout = o.opts.SpawnTimeout
	}

	requestID := uuid.NewString()
	decision, err := o.decide(requestID, &spawnReq)
	if err != nil {
		return nil, err
	}
	o.storeDecision(ctx, decision)
	if o.metrics != nil {
		o.metrics.DecisionMade(ctx, string(decision.Strategy))
	}

	ordered := append([]string{decision.Provider}, decision.FallbackChain...)
	if spawnReq.DisableFallback || !o.opts.FallbackEnabled {
		ordered = ordered[:1]
	}

	policy := o.opts.Retry
	if spawnReq.MaxAttempts > 0 {
		policy.MaxAttempts = spawnReq.MaxAttempts
	}
	if len(ordered) == 1 {
		policy.MaxAttempts = 1
	}

	var (
		attempts []provider.Attempt
		inst     *agent.Instance
		chosen   string
		idx      int
	)

	retryErr := resilience.WithRetry(ctx, policy, func(ctx context.Context) error {
		for idx < len(ordered) {
			name := ordered[idx]
			idx++

			// Circuit gate: a rejected provider costs nothing, not even an
			// attempt from the budget.
			if !o.monitor.Allow(name) {
				attempts = append(attempts, provider.Attempt{Provider: name, Reason: "circuit open"})
				continue
			}

			got, err := o.spawnOn(ctx, name, &spawnReq)
			if err != nil {
				attempts = append(attempts, provider.Attempt{Provider: name, Reason: err.Error()})
				if idx < len(ordered) {
					return resilience.Transient(fmt.Errorf("%w on %s: %v", provider.ErrSpawnFailed, name, err))
				}
				return &provider.SpawnExhaustedError{RequestID: requestID, Attempts: attempts}
			}

			inst = got
			chosen = name
			return nil
		}
		return &provider.SpawnExhaustedError{RequestID: requestID, Attempts: attempts}
	})

	if retryErr != nil {
		var exhausted *provider.SpawnExhaustedError
		if !errors.As(retryErr, &exhausted) {
			exhausted = &provider.SpawnExhaustedError{RequestID: requestID, Attempts: attempts}
		}
		o.log.Error("spawn exhausted",
			"request_id", requestID,
			"attempted", exhausted.Providers())
		return nil, exhausted
	}

	logical := inst.Clone()
	logical.ID = uuid.NewString()
	logical.Provider = chosen
	logical.Status = agent.StatusRunning
	if logical.CreatedAt.IsZero() {
		logical.CreatedAt = o.now()
	}
	logical.LastActive = o.now()

	o.mu.Lock()
	o.sessions[logical.ID] = &session{
		inst:       logical,
		providerID: inst.ID,
		decision:   decision,
		chain:      chainAfter(ordered, chosen),
		spawnReq:   spawnReq,
	}
	o.mu.Unlock()

	o.publish(event.Event{
		Type:      event.TypeAgentSpawned,
		AgentID:   logical.ID,
		Provider:  chosen,
		Status:    string(logical.Status),
		RequestID: requestID,
		At:        o.now(),
	})
	o.auditInstance(ctx, logical, requestID)

	o.log.Info("agent spawned",
		"agent_id", logical.ID,
		"provider", chosen,
		"request_id", requestID)

	return logical.Clone(), nil
}

// decide produces the routing decision for a spawn. An explicit provider
// override skips scoring entirely and yields a single-entry decision with no
// fallback chain.
func (o *Orchestrator) decide(requestID string, req *agent.SpawnRequest) (*routing.Decision, error) {
	if req.Provider != "" {
		if _, err := o.reg.Resolve(req.Provider); err != nil {
			return nil, fmt.Errorf("spawn: %w", err)
		}
		desc, _ := o.reg.Descriptor(req.Provider)
		return &routing.Decision{
			RequestID:       requestID,
			Provider:        req.Provider,
			Strategy:        routing.StrategyFallback,
			EstimatedCost:   desc.CostPer1K * float64(req.EstimatedTokens) / 1000,
			ExpectedLatency: desc.TypicalLatency,
			DecidedAt:       o.now(),
		}, nil
	}

	return o.engine.Route(&routing.Request{
		ID:                requestID,
		Capabilities:      req.Capabilities,
		EstimatedTokens:   req.EstimatedTokens,
		PreferredProvider: req.PreferredProvider,
		MaxCostPer1K:      req.MaxCostPer1K,
		MaxLatency:        req.MaxLatency,
	})
}

// spawnOn performs one spawn attempt against one provider, charging the
// outcome to the health monitor and the provider's concurrency slots.
func (o *Orchestrator) spawnOn(ctx context.Context, name string, req *agent.SpawnRequest) (*agent.Instance, error) {
	rt, err := o.reg.Resolve(name)
	if err != nil {
		// The provider was never called, so no outcome will ever reach the
		// breaker; hand back the half-open probe taken by Allow.
		o.monitor.ReturnProbe(name)
		return nil, err
	}

	if !o.acquireSlot(name) {
		o.monitor.ReturnProbe(name)
		return nil, fmt.Errorf("provider %s at capacity", name)
	}

	spawnCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	start := o.now()
	inst, err := rt.Spawn(spawnCtx, req)
	dur := o.now().Sub(start)

	if o.metrics != nil {
		o.metrics.SpawnAttempt(ctx, name, err == nil, dur)
	}

	if err != nil {
		o.releaseSlot(name)
		o.monitor.RecordFailure(name, err.Error())
		o.log.Warn("spawn attempt failed", "provider", name, "error", err)
		return nil, err
	}

	o.monitor.RecordSuccess(name, dur)
	return inst, nil
}

// Exec runs one command on a live session. Calls on the same session are
// serialized: a second caller gets ErrBusy instead of queueing. A deadline
// overrun triggers exactly one best-effort kill and surfaces ErrTimeout.
// Other failures migrate the session down its fallback chain when policy
// allows, keeping the caller's logical id.
func (o *Orchestrator) Exec(ctx context.Context, agentID, command string) (*agent.ExecResult, error) {
	o.mu.Lock()
	sess, err := o.lookup(agentID)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if sess.busy {
		o.mu.Unlock()
		return nil, fmt.Errorf("exec %s: %w", agentID, provider.ErrBusy)
	}
	sess.busy = true
	providerName := sess.inst.Provider
	providerID := sess.providerID
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if s, ok := o.sessions[agentID]; ok {
			s.busy = false
		}
		o.mu.Unlock()
	}()

	rt, err := o.reg.Resolve(providerName)
	if err != nil {
		return nil, fmt.Errorf("exec %s: %w", agentID, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, o.opts.ExecTimeout)
	start := o.now()
	res, execErr := rt.Exec(execCtx, providerID, command)
	dur := o.now().Sub(start)
	cancel()

	if o.metrics != nil {
		o.metrics.ExecCompleted(ctx, providerName, execErr == nil, dur)
	}

	if execErr == nil {
		o.monitor.RecordSuccess(providerName, dur)
		o.touch(agentID)
		return res, nil
	}

	// Deadline overrun: one failure sample, one best-effort kill, session gone.
	if errors.Is(execErr, context.DeadlineExceeded) || errors.Is(execErr, provider.ErrTimeout) {
		o.monitor.RecordFailure(providerName, "exec timeout")
		o.killAfterTimeout(rt, providerID, agentID, providerName)
		return nil, fmt.Errorf("exec %s on %s: %w", agentID, providerName, provider.ErrTimeout)
	}

	// The adapter no longer knows the session. Not retryable anywhere.
	if errors.Is(execErr, provider.ErrAgentNotFound) {
		o.retire(agentID, agent.StatusError, "session lost")
		return nil, fmt.Errorf("exec %s: %w", agentID, provider.ErrAgentNotFound)
	}

	o.monitor.RecordFailure(providerName, execErr.Error())

	if o.opts.FallbackEnabled && !o.sessionFallbackDisabled(agentID) {
		if res, ferr := o.execFallback(ctx, agentID, command, providerName); ferr == nil {
			return res, nil
		}
	}

	o.setStatus(agentID, agent.StatusError)
	o.publish(event.Event{
		Type:     event.TypeAgentError,
		AgentID:  agentID,
		Provider: providerName,
		Reason:   execErr.Error(),
		At:       o.now(),
	})
	return nil, fmt.Errorf("exec %s on %s: %v: %w", agentID, providerName, execErr, provider.ErrExecutionFailed)
}

// execFallback migrates the session to the next viable chain provider and
// re-issues the command exactly once. The logical id is preserved; only the
// adapter-side binding changes.
func (o *Orchestrator) execFallback(ctx context.Context, agentID, command, failedProvider string) (*agent.ExecResult, error) {
	o.mu.Lock()
	sess, ok := o.sessions[agentID]
	if !ok {
		o.mu.Unlock()
		return nil, provider.ErrAgentNotFound
	}
	chain := sess.chain
	spawnReq := sess.spawnReq
	oldProviderID := sess.providerID
	o.mu.Unlock()

	for i, name := range chain {
		if !o.monitor.Allow(name) {
			continue
		}

		inst, err := o.spawnOn(ctx, name, &spawnReq)
		if err != nil {
			continue
		}

		o.mu.Lock()
		s, live := o.sessions[agentID]
		if live {
			s.providerID = inst.ID
			s.inst.Provider = name
			s.inst.Status = agent.StatusRunning
			s.chain = chain[i+1:]
		}
		o.mu.Unlock()

		if !live {
			// The session was killed while the replacement spawned. Kill on
			// the old binding already cleaned up the failed session and its
			// slot; only the orphaned replacement needs discarding.
			o.discardSession(name, inst.ID)
			return nil, fmt.Errorf("exec %s: %w", agentID, provider.ErrAgentNotFound)
		}

		// The binding moved, so the failed session and its slot are ours to
		// clean up; nothing else references them anymore.
		if rt, rerr := o.reg.Resolve(failedProvider); rerr == nil {
			killCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = rt.Kill(killCtx, oldProviderID)
			cancel()
		}
		o.releaseSlot(failedProvider)

		if o.metrics != nil {
			o.metrics.FallbackTriggered(ctx, failedProvider, name)
		}
		o.publish(event.Event{
			Type:     event.TypeAgentStatusChanged,
			AgentID:  agentID,
			Provider: name,
			Status:   string(agent.StatusRunning),
			Reason:   "fallback from " + failedProvider,
			At:       o.now(),
		})
		o.log.Info("exec fallback migrated session",
			"agent_id", agentID,
			"from", failedProvider,
			"to", name)

		rt, err := o.reg.Resolve(name)
		if err != nil {
			return nil, err
		}
		execCtx, cancel := context.WithTimeout(ctx, o.opts.ExecTimeout)
		start := o.now()
		res, execErr := rt.Exec(execCtx, inst.ID, command)
		dur := o.now().Sub(start)
		cancel()

		if o.metrics != nil {
			o.metrics.ExecCompleted(ctx, name, execErr == nil, dur)
		}
		if execErr != nil {
			o.monitor.RecordFailure(name, execErr.Error())
			return nil, execErr
		}
		o.monitor.RecordSuccess(name, dur)
		o.touch(agentID)
		return res, nil
	}

	return nil, provider.ErrSpawnExhausted
}

// Kill terminates the session. The session leaves tracking no matter what
// the adapter says; a second Kill on the same id is a no-op success.
func (o *Orchestrator) Kill(ctx context.Context, agentID string) error {
	o.mu.Lock()
	if _, gone := o.tombstones[agentID]; gone {
		o.mu.Unlock()
		return nil
	}
	sess, ok := o.sessions[agentID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("kill %s: %w", agentID, provider.ErrAgentNotFound)
	}
	providerName := sess.inst.Provider
	providerID := sess.providerID
	o.mu.Unlock()

	var killErr error
	if rt, err := o.reg.Resolve(providerName); err == nil {
		killErr = rt.Kill(ctx, providerID)
	}

	o.retire(agentID, agent.StatusStopped, "killed")

	if killErr != nil {
		return fmt.Errorf("kill %s on %s: %w", agentID, providerName, killErr)
	}
	return nil
}

// Status reports the session's current lifecycle status, refreshed from the
// adapter. Unknown and killed ids fail with ErrAgentNotFound.
func (o *Orchestrator) Status(ctx context.Context, agentID string) (agent.Status, error) {
	o.mu.Lock()
	sess, err := o.lookup(agentID)
	if err != nil {
		o.mu.Unlock()
		return "", err
	}
	providerName := sess.inst.Provider
	providerID := sess.providerID
	o.mu.Unlock()

	rt, err := o.reg.Resolve(providerName)
	if err != nil {
		return "", fmt.Errorf("status %s: %w", agentID, err)
	}

	st, err := rt.Status(ctx, providerID)
	if err != nil {
		if errors.Is(err, provider.ErrAgentNotFound) {
			o.retire(agentID, agent.StatusError, "session lost")
		}
		return "", fmt.Errorf("status %s: %w", agentID, err)
	}

	o.mu.Lock()
	if s, ok := o.sessions[agentID]; ok {
		s.inst.Status = st
		s.inst.LastActive = o.now()
	}
	o.mu.Unlock()

	return st, nil
}

// Get returns a copy of the tracked instance.
func (o *Orchestrator) Get(agentID string) (*agent.Instance, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, err := o.lookup(agentID)
	if err != nil {
		return nil, err
	}
	return sess.inst.Clone(), nil
}

// List returns copies of all live instances, sorted by creation time then id.
func (o *Orchestrator) List() []*agent.Instance {
	o.mu.Lock()
	out := make([]*agent.Instance, 0, len(o.sessions))
	for _, sess := range o.sessions {
		out = append(out, sess.inst.Clone())
	}
	o.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ProviderStatuses returns every registered provider with its live health.
func (o *Orchestrator) ProviderStatuses() []ProviderStatus {
	descs := o.reg.Descriptors()
	out := make([]ProviderStatus, 0, len(descs))
	for _, d := range descs {
		out = append(out, ProviderStatus{
			Descriptor: d,
			Health:     o.monitor.Record(d.Name),
		})
	}
	return out
}

// Decision returns the routing decision recorded for requestID, checking the
// in-process cache before the audit store. Returns nil when unknown.
func (o *Orchestrator) Decision(ctx context.Context, requestID string) (*routing.Decision, error) {
	o.mu.Lock()
	for _, sess := range o.sessions {
		if sess.decision != nil && sess.decision.RequestID == requestID {
			d := *sess.decision
			o.mu.Unlock()
			return &d, nil
		}
	}
	o.mu.Unlock()

	if o.cache != nil {
		if data, ok, err := o.cache.Get(ctx, decisionKey(requestID)); err == nil && ok {
			var d routing.Decision
			if err := json.Unmarshal(data, &d); err == nil {
				return &d, nil
			}
		}
	}
	if o.audit != nil {
		return o.audit.GetDecision(ctx, requestID)
	}
	return nil, nil
}

// lookup must be called with o.mu held.
func (o *Orchestrator) lookup(agentID string) (*session, error) {
	if _, gone := o.tombstones[agentID]; gone {
		return nil, fmt.Errorf("agent %s: %w", agentID, provider.ErrAgentNotFound)
	}
	sess, ok := o.sessions[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, provider.ErrAgentNotFound)
	}
	return sess, nil
}

// retire removes the session from tracking and tombstones the id so later
// kills stay idempotent while status and exec report not-found.
func (o *Orchestrator) retire(agentID string, st agent.Status, reason string) {
	o.mu.Lock()
	sess, ok := o.sessions[agentID]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(o.sessions, agentID)
	o.tombstones[agentID] = struct{}{}
	providerName := sess.inst.Provider
	sess.inst.Status = st
	o.mu.Unlock()

	o.releaseSlot(providerName)

	evType := event.TypeAgentKilled
	if st == agent.StatusError {
		evType = event.TypeAgentError
	}
	o.publish(event.Event{
		Type:     evType,
		AgentID:  agentID,
		Provider: providerName,
		Status:   string(st),
		Reason:   reason,
		At:       o.now(),
	})

	if o.audit != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.audit.UpdateInstanceStatus(ctx, agentID, st); err != nil {
			o.log.Warn("audit status update failed", "agent_id", agentID, "error", err)
		}
		cancel()
	}
}

// discardSession best-effort kills an adapter session that never got bound
// to a logical id and returns its concurrency slot.
func (o *Orchestrator) discardSession(providerName, providerID string) {
	if rt, err := o.reg.Resolve(providerName); err == nil {
		killCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.Kill(killCtx, providerID); err != nil {
			o.log.Warn("orphaned session kill failed",
				"provider", providerName,
				"provider_id", providerID,
				"error", err)
		}
		cancel()
	}
	o.releaseSlot(providerName)
}

// killAfterTimeout issues the single best-effort kill owed after an exec
// deadline overrun, then retires the session.
func (o *Orchestrator) killAfterTimeout(rt provider.Runtime, providerID, agentID, providerName string) {
	killCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rt.Kill(killCtx, providerID); err != nil {
		o.log.Warn("post-timeout kill failed",
			"agent_id", agentID,
			"provider", providerName,
			"error", err)
	}
	cancel()
	o.retire(agentID, agent.StatusError, "exec timeout")
}

func (o *Orchestrator) sessionFallbackDisabled(agentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[agentID]
	return ok && sess.spawnReq.DisableFallback
}

func (o *Orchestrator) setStatus(agentID string, st agent.Status) {
	o.mu.Lock()
	if sess, ok := o.sessions[agentID]; ok {
		sess.inst.Status = st
	}
	o.mu.Unlock()
}

func (o *Orchestrator) touch(agentID string) {
	o.mu.Lock()
	if sess, ok := o.sessions[agentID]; ok {
		sess.inst.LastActive = o.now()
	}
	o.mu.Unlock()
}

func (o *Orchestrator) publish(ev event.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) auditInstance(ctx context.Context, inst *agent.Instance, requestID string) {
	if o.audit == nil {
		return
	}
	if err := o.audit.SaveInstance(ctx, inst, requestID); err != nil {
		o.log.Warn("audit instance save failed", "agent_id", inst.ID, "error", err)
	}
}

func (o *Orchestrator) storeDecision(ctx context.Context, d *routing.Decision) {
	if o.cache != nil {
		if data, err := json.Marshal(d); err == nil {
			if err := o.cache.Set(ctx, decisionKey(d.RequestID), data, time.Hour); err != nil {
				o.log.Debug("decision cache set failed", "request_id", d.RequestID, "error", err)
			}
		}
	}
	if o.audit != nil {
		if err := o.audit.SaveDecision(ctx, d); err != nil {
			o.log.Warn("audit decision save failed", "request_id", d.RequestID, "error", err)
		}
	}
}

// acquireSlot reserves one concurrency slot for name. Providers without a
// MaxConcurrent bound always succeed.
func (o *Orchestrator) acquireSlot(name string) bool {
	sem := o.slot(name)
	if sem == nil {
		return true
	}
	return sem.TryAcquire(1)
}

func (o *Orchestrator) releaseSlot(name string) {
	o.mu.Lock()
	sem := o.sem[name]
	o.mu.Unlock()
	if sem != nil {
		sem.Release(1)
	}
}

func (o *Orchestrator) slot(name string) *semaphore.Weighted {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sem, ok := o.sem[name]; ok {
		return sem
	}
	desc, err := o.reg.Descriptor(name)
	if err != nil || desc.MaxConcurrent <= 0 {
		o.sem[name] = nil
		return nil
	}
	sem := semaphore.NewWeighted(int64(desc.MaxConcurrent))
	o.sem[name] = sem
	return sem
}

// chainAfter returns the providers that remain after chosen in the ordered
// walk, as the session's future fallback chain.
func chainAfter(ordered []string, chosen string) []string {
	for i, name := range ordered {
		if name == chosen {
			out := make([]string, len(ordered)-i-1)
			copy(out, ordered[i+1:])
			return out
		}
	}
	return nil
}

// decisionKey must stay within the JetStream KV key alphabet, so the
// segments join on a dot.
func decisionKey(requestID string) string {
	return "decision." + requestID
}
