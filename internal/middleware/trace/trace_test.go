package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "rently/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	return newLeveledMiddleware(buf, slog.LevelDebug)
}

func newLeveledMiddleware(buf *bytes.Buffer, level slog.Level) *Middleware {
	logger := applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: applog.NewHandler(buf, level, "text")})
	return NewMiddleware(logger, func(r *http.Request) string { return "203.0.113.1" })
}

func TestRequestIDPropagation(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if !strings.HasPrefix(seen, "req_") || rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("request id %q header %q", seen, rec.Header().Get(HeaderRequestID))
	}
	out := buf.String()
	if strings.Count(out, "request_id="+seen) < 3 {
		t.Fatalf("request id missing from logs:\n%s", out)
	}
	if !strings.Contains(out, "status_code=418") {
		t.Fatalf("status not logged:\n%s", out)
	}
	if got := m.GetMetrics(); got.TotalRequests != 1 || got.InFlight != 0 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestStartLineIsDebugOnly(t *testing.T) {
	var buf bytes.Buffer
	m := newLeveledMiddleware(&buf, slog.LevelInfo)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/me", nil))

	out := buf.String()
	if strings.Contains(out, "HTTP request started") {
		t.Fatalf("start line logged at info:\n%s", out)
	}
	if !strings.Contains(out, "HTTP request completed") || !strings.Contains(out, "status_code=200") {
		t.Fatalf("completion line missing:\n%s", out)
	}
}

func TestIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Header().Get(HeaderRequestID) != "abc-123" {
		t.Fatalf("header = %q", rec.Header().Get(HeaderRequestID))
	}

	r.Header.Set(HeaderRequestID, "bad id with spaces")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got := rec.Header().Get(HeaderRequestID); got == "bad id with spaces" || !strings.HasPrefix(got, "req_") {
		t.Fatalf("invalid id should be replaced, got %q", got)
	}
}

func TestResponseWriterFlushes(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("flush: %v", err)
		}
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream", nil))
	if !rec.Flushed {
		t.Fatal("recorder was not flushed")
	}
}
