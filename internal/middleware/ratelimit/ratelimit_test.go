package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perSecond float64, burst int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerSecond: perSecond, Burst: burst, IdleTTL: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)

	now := time.Date(2025, 3, 19, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_AllowPerClient(t *testing.T) {
	rl, now := newTestLimiter(t, 1, 2)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request within the same instant should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("clients must not share buckets")
	}

	*now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatal("a token should refill after one second")
	}
	if got := rl.Hits(); got != 1 {
		t.Fatalf("expected 1 rejected request, got %d", got)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 1, 1)
	rl.Allow("old")
	*now = now.Add(2 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("expected 1 stale client removed, got %d", removed)
	}
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("expected 1 active client, got %d", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 0.5, 1)
	onlyPost := func(r *http.Request) bool { return r.Method == http.MethodPost }
	handler := rl.Middleware(func(*http.Request) string { return "client" }, onlyPost, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	tests := []struct {
		method     string
		wantStatus int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusNoContent},
	}
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/transactions/fetch", nil))
		if rec.Code != tt.wantStatus {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, tt.wantStatus)
		}
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "2" {
			t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
		}
	}
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.burst != DefaultConfig().Burst || float64(rl.limit) != DefaultConfig().RequestsPerSecond {
		t.Fatalf("expected defaults, got burst=%d limit=%v", rl.burst, rl.limit)
	}
	rl.Stop()
}
