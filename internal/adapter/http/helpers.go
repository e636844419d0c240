package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/relayops/relay/internal/port/provider"
	"github.com/relayops/relay/internal/resilience"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeLifecycleError maps orchestrator errors to HTTP status codes.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provider.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, "agent not found")
	case errors.Is(err, provider.ErrBusy):
		writeError(w, http.StatusConflict, "agent is busy")
	case errors.Is(err, provider.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "execution timed out")
	case errors.Is(err, provider.ErrNoProviderAvailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, provider.ErrSpawnExhausted):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, provider.ErrAdapterNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "provider circuit is open")
	case errors.Is(err, provider.ErrExecutionFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
