package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(6, 2) // one token every 10s, burst 2
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("keys should be limited independently")
	}

	now = now.Add(10 * time.Second)
	if !rl.Allow("a") {
		t.Error("token should refill after 10s")
	}
}

func TestRateLimiter_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2024, 11, 3, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(11 * time.Minute)
	rl.Allow("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters["a"]; ok {
		t.Error("idle key should have been evicted")
	}
	if len(rl.limiters) != 1 {
		t.Errorf("expected 1 tracked key, got %d", len(rl.limiters))
	}
}

func TestRateLimitByIP(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := RateLimitByIP(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.1:5000", ""); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := send("10.0.0.1:5001", ""); code != http.StatusTooManyRequests {
		t.Errorf("second request from same IP: %d, want 429", code)
	}
	if code := send("10.0.0.2:5000", ""); code != http.StatusOK {
		t.Errorf("other IP: %d, want 200", code)
	}
	if code := send("10.0.0.9:5000", "203.0.113.7, 10.0.0.9"); code != http.StatusOK {
		t.Errorf("forwarded client: %d, want 200", code)
	}
	if code := send("10.0.0.8:5000", "203.0.113.7"); code != http.StatusTooManyRequests {
		t.Errorf("same forwarded client: %d, want 429", code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"remote addr", "192.0.2.1:1234", "", "192.0.2.1"},
		{"remote without port", "192.0.2.1", "", "192.0.2.1"},
		{"forwarded chain", "10.0.0.1:1", "198.51.100.4, 10.0.0.1", "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
