package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("u1"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, retry := rl.Allow("u1")
	if ok || retry != time.Minute {
		t.Fatalf("third request ok=%v retry=%v", ok, retry)
	}
	if ok, _ := rl.Allow("u2"); !ok {
		t.Fatal("other key must have its own window")
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow("u1"); !ok {
		t.Fatal("window should have reset")
	}
}

func TestCleanup(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5})
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	rl.Allow("b")

	now = now.Add(2 * time.Minute)
	rl.Allow("c")
	if n := rl.cleanupStaleEntries(); n != 2 {
		t.Fatalf("removed %d", n)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("active = %d", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	h := rl.Middleware(
		func(r *http.Request) string { return r.RemoteAddr },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first code = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second code = %d retry = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}
