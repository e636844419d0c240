package httprt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relayops/relay/internal/domain/agent"
	"github.com/relayops/relay/internal/port/provider"
	"github.com/relayops/relay/internal/resilience"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sekrit" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "s-1", "status": "running"})
	})
	mux.HandleFunc("POST /v1/sessions/{id}/exec", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "s-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"stdout":      "out: " + req["command"],
			"exit_code":   0,
			"duration_ms": 42,
		})
	})
	mux.HandleFunc("GET /v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "s-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "s-1", "status": "running"})
	})
	mux.HandleFunc("DELETE /v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "s-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := New(Options{Name: "remote", BaseURL: srv.URL, Token: "sekrit"})
	return srv, c
}

func TestSpawnExecStatusKill(t *testing.T) {
	_, c := newTestServer(t)

	inst, err := c.Spawn(context.Background(), &agent.SpawnRequest{Name: "w", Model: "m1"})
	if err != nil {
		t.Fatal(err)
	}
	if inst.ID != "s-1" || inst.Status != agent.StatusRunning {
		t.Fatalf("unexpected instance %+v", inst)
	}

	res, err := c.Exec(context.Background(), "s-1", "ls")
	if err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "out: ls" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	if res.Duration != 42*time.Millisecond {
		t.Fatalf("unexpected duration %v", res.Duration)
	}

	st, err := c.Status(context.Background(), "s-1")
	if err != nil {
		t.Fatal(err)
	}
	if st != agent.StatusRunning {
		t.Fatalf("expected running, got %s", st)
	}

	if err := c.Kill(context.Background(), "s-1"); err != nil {
		t.Fatal(err)
	}
}

func TestExecNotFound(t *testing.T) {
	_, c := newTestServer(t)

	_, err := c.Exec(context.Background(), "missing", "ls")
	if !errors.Is(err, provider.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestKillMissingSessionIsIdempotent(t *testing.T) {
	_, c := newTestServer(t)

	if err := c.Kill(context.Background(), "missing"); err != nil {
		t.Fatalf("expected 404 kill to succeed, got %v", err)
	}
}

func TestSpawnUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)
	c := New(Options{Name: "remote", BaseURL: srv.URL, Token: "wrong"})

	_, err := c.Spawn(context.Background(), &agent.SpawnRequest{Name: "w"})
	if !errors.Is(err, provider.ErrSpawnFailed) {
		t.Fatalf("expected ErrSpawnFailed, got %v", err)
	}
}

func TestBreakerShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := New(Options{Name: "remote", BaseURL: srv.URL})
	c.SetBreaker(resilience.NewBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := c.Status(context.Background(), "s-1"); err == nil {
			t.Fatal("expected error from bad gateway")
		}
	}

	_, err := c.Status(context.Background(), "s-1")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in   string
		want agent.Status
	}{
		{"pending", agent.StatusPending},
		{"starting", agent.StatusPending},
		{"running", agent.StatusRunning},
		{"stopped", agent.StatusStopped},
		{"terminated", agent.StatusStopped},
		{"failed", agent.StatusError},
		{"anything-else", agent.StatusRunning},
	}
	for _, tt := range tests {
		if got := mapStatus(tt.in); got != tt.want {
			t.Errorf("mapStatus(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
