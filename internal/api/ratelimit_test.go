package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRateLimiter_LocalCounterBlocksOverBudget(t *testing.T) {
	rl := NewRateLimiter(nil, 3, true, zap.NewNop())
	clock := time.Date(2025, 6, 15, 12, 0, 30, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 3; i++ {
		if rr := send(); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rr.Code)
		}
	}

	rr := send()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("over-budget request: status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", rr.Header().Get("X-RateLimit-Remaining"))
	}

	// A new minute window resets the budget.
	clock = clock.Add(time.Minute)
	if rr := send(); rr.Code != http.StatusOK {
		t.Errorf("after window reset: status = %d, want 200", rr.Code)
	}
}

func TestRateLimiter_ClientsCountedSeparately(t *testing.T) {
	rl := NewRateLimiter(nil, 1, false, zap.NewNop())

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("client A first request: %d", code)
	}
	if code := send("10.0.0.1:1"); code != http.StatusTooManyRequests {
		t.Fatalf("client A second request: %d, want 429", code)
	}
	if code := send("10.0.0.2:1"); code != http.StatusOK {
		t.Errorf("client B must have its own budget, got %d", code)
	}
}

func TestRateLimiter_HeadersOptional(t *testing.T) {
	rl := NewRateLimiter(nil, 5, false, zap.NewNop())
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("headers should be absent when disabled")
	}
}
