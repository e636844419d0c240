package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = ip + ":51234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	handler := limitedHandler(NewRateLimiter(1, 10))

	for i := range 10 {
		if rec := doRequest(handler, "192.168.1.1"); rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	handler := limitedHandler(NewRateLimiter(1, 5))

	for range 5 {
		doRequest(handler, "192.168.1.1")
	}

	rec := doRequest(handler, "192.168.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	handler := limitedHandler(NewRateLimiter(1, 2))

	for range 2 {
		doRequest(handler, "10.0.0.1")
	}

	if rec := doRequest(handler, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("IP 10.0.0.1: expected 429, got %d", rec.Code)
	}
	if rec := doRequest(handler, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("IP 10.0.0.2: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterCleanupEvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 5)
	handler := limitedHandler(rl)

	doRequest(handler, "10.0.0.1")
	doRequest(handler, "10.0.0.2")
	if got := rl.Len(); got != 2 {
		t.Fatalf("expected 2 tracked IPs, got %d", got)
	}

	rl.cleanup(time.Nanosecond)
	if got := rl.Len(); got != 0 {
		t.Fatalf("expected 0 tracked IPs after cleanup, got %d", got)
	}
}

func TestRealIPFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "not-a-hostport"
	if got := realIP(req); got != "not-a-hostport" {
		t.Fatalf("unexpected ip %q", got)
	}
}
