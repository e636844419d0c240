// Package middleware provides HTTP middleware for Relay.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/relayops/relay/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID adopts the caller's X-Request-ID or mints a uuid, matching the
// request ids the orchestrator stamps on routing decisions. The id lands in
// the logger context and is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
