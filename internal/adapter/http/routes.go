package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/relayops/relay/internal/adapter/ws"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/healthz", h.Healthz)

	if hub != nil {
		r.Get("/ws", hub.HandleWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Agent sessions
		r.Post("/agents", h.SpawnAgent)
		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{id}", h.GetAgent)
		r.Post("/agents/{id}/exec", h.ExecAgent)
		r.Get("/agents/{id}/status", h.AgentStatus)
		r.Delete("/agents/{id}", h.KillAgent)

		// Providers
		r.Get("/providers", h.ListProviders)

		// Routing decisions
		r.Get("/decisions/{requestID}", h.GetDecision)
	})
}
