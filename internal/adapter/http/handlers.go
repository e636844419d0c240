// Package http provides the REST API over the orchestrator: session
// lifecycle, provider health, and routing decision lookups.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relayops/relay/internal/adapter/otel"
	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/service"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	orch *service.Orchestrator
}

// NewHandlers creates the handler set.
func NewHandlers(orch *service.Orchestrator) *Handlers {
	return &Handlers{orch: orch}
}

// SpawnAgent creates a new agent session, routed or explicitly placed.
func (h *Handlers) SpawnAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[agent.SpawnRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, span := otel.StartSpawnSpan(r.Context(), req.Name, req.Provider)
	defer span.End()

	inst, err := h.orch.Spawn(ctx, &req)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

// ListAgents returns all live sessions.
func (h *Handlers) ListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.List())
}

// GetAgent returns one live session.
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	inst, err := h.orch.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

type execRequest struct {
	Command string `json:"command"`
}

// ExecAgent runs one command on a session.
func (h *Handlers) ExecAgent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[execRequest](w, r)
	if !ok {
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	id := chi.URLParam(r, "id")
	ctx, span := otel.StartExecSpan(r.Context(), id)
	defer span.End()

	res, err := h.orch.Exec(ctx, id, req.Command)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AgentStatus refreshes and returns the session's lifecycle status.
func (h *Handlers) AgentStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.orch.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(st)})
}

// KillAgent terminates a session. Killing an already-dead session succeeds.
func (h *Handlers) KillAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, span := otel.StartKillSpan(r.Context(), id)
	defer span.End()

	if err := h.orch.Kill(ctx, id); err != nil {
		writeLifecycleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProviders returns every registered provider with its live health.
func (h *Handlers) ListProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.ProviderStatuses())
}

// GetDecision returns the routing decision recorded for a request id.
func (h *Handlers) GetDecision(w http.ResponseWriter, r *http.Request) {
	d, err := h.orch.Decision(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "decision not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
