package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
)

func TestAllow_BurstThenBlocked(t *testing.T) {
	l := New(1, 3)
	fixed := time.Date(2026, 12, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		if !l.Allow("acct") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("acct") {
		t.Error("4th attempt in the same instant should be blocked")
	}
	if !l.Allow("other") {
		t.Error("a different key has its own bucket")
	}

	fixed = fixed.Add(time.Minute)
	if !l.Allow("acct") {
		t.Error("a token should be refilled after a minute")
	}
}

func TestAllow_Disabled(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		if !l.Allow("k") {
			t.Fatal("limiter with perMinute 0 should never block")
		}
	}
}

func TestResetAndSweep(t *testing.T) {
	l := New(1, 1)
	now := time.Date(2026, 12, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("second attempt should be blocked")
	}
	l.Reset("a")
	if !l.Allow("a") {
		t.Error("reset key should be allowed again")
	}

	l.Allow("b")
	now = now.Add(11 * time.Minute)
	if n := l.Sweep(); n != 2 {
		t.Errorf("Sweep removed %d, want 2", n)
	}
	if l.Len() != 0 {
		t.Errorf("Len = %d, want 0", l.Len())
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, 1)
	h := l.Middleware(func(r *http.Request) string { return r.Header.Get("X-Account") })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(account string) int {
		req := httptest.NewRequest(http.MethodPost, "/claim", nil)
		req.Header.Set("X-Account", account)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("a1"); code != http.StatusNoContent {
		t.Fatalf("first request: got %d", code)
	}
	if code := do("a1"); code != http.StatusTooManyRequests {
		t.Errorf("second request: got %d, want 429", code)
	}

	req := httptest.NewRequest(http.MethodPost, "/claim", nil)
	req.Header.Set("X-Account", "a1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	var body apierr.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if body.Error.Code != "rate_limited" {
		t.Errorf("error code = %q, want rate_limited", body.Error.Code)
	}
	if code := do("a2"); code != http.StatusNoContent {
		t.Errorf("other account: got %d", code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded", "203.0.113.5, 10.0.0.1", "", "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "10.0.0.2:1234", "198.51.100.7"},
		{"remote with port", "", "", "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", "", "", "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
