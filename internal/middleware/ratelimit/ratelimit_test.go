package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, rps float64, burst int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerSecond: rps, Burst: burst, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiterBurstThenRefill(t *testing.T) {
	rl, now := newTestLimiter(t, 1, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst was rejected", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request beyond burst was allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other clients have their own bucket")
	}

	*now = now.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("one token should refill after a second")
	}

	if got := rl.GetMetrics(); got.TotalHits != 1 || got.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v, want 1 hit and 2 clients", got)
	}
}

func TestSweepDropsIdleClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 5, Burst: 5, CleanupInterval: time.Hour, IdleTimeout: 20 * time.Millisecond})
	t.Cleanup(rl.Stop)

	rl.Allow("a")
	time.Sleep(40 * time.Millisecond)
	rl.Allow("b")

	if removed := rl.sweep(); removed != 1 {
		t.Errorf("sweep() = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestActivityKeepsBucket(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Hour, IdleTimeout: time.Hour})
	t.Cleanup(rl.Stop)

	if !rl.Allow("a") {
		t.Fatal("first request rejected")
	}
	if rl.Allow("a") {
		t.Fatal("second request shares the drained bucket and must be rejected")
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 0.5, 1)
	limited := 0
	h := rl.Middleware(
		func(r *http.Request) string { return r.RemoteAddr },
		func(w http.ResponseWriter, r *http.Request) {
			limited++
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := []int{}
	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
	if limited != 1 {
		t.Errorf("onLimit called %d times, want 1", limited)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	rl.Stop()
}
