package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rently/internal/auth"
	"rently/internal/core"
	applog "rently/internal/log"
	"rently/internal/store/memory"
)

type harness struct {
	t     *testing.T
	srv   *Server
	store *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := memory.New()
	logger := applog.New(applog.Config{Component: "test", Handler: applog.NewHandler(io.Discard, slog.LevelError, "text")})
	srv := NewServer(":0", Deps{
		Gateway:  st,
		Contacts: st,
		Verifier: auth.DevVerifier{},
	}, Options{
		SessionTTL:         time.Hour,
		MaxSessions:        10,
		RateLimitPerMinute: 1000,
		AllowedOrigins:     []string{"http://localhost:5173"},
		FeedbackEmail:      "feedback@rently.app",
		CurrencySymbol:     "₹",
		CurrencyCode:       "INR",
		Logger:             logger,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return &harness{t: t, srv: srv, store: st}
}

func (h *harness) do(method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.RemoteAddr = "192.0.2.10:5000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) signIn(uid string) *http.Cookie {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/auth/session", map[string]string{"idToken": auth.DevToken(uid, "Owner "+uid, uid+"@example.com")})
	if rec.Code != http.StatusOK {
		h.t.Fatalf("sign in status = %d body = %s", rec.Code, rec.Body)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	h.t.Fatal("no session cookie set")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// waitDashboard polls until cond holds; snapshots land asynchronously.
func (h *harness) waitDashboard(c *http.Cookie, cond func(dashboardJSON) bool) dashboardJSON {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := h.do(http.MethodGet, "/api/dashboard", nil, c)
		if rec.Code != http.StatusOK {
			h.t.Fatalf("dashboard status = %d", rec.Code)
		}
		d := decode[dashboardJSON](h.t, rec)
		if cond(d) {
			return d
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("dashboard never matched, last = %+v", d)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func income(amount, tenant, date string) map[string]any {
	return map[string]any{"type": "income", "amount": amount, "description": "rent", "tenantName": tenant, "date": date}
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := h.do(http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestReadyReportsBackendFailure(t *testing.T) {
	h := newHarness(t)
	h.srv.deps.Ready = func(context.Context) error { return io.ErrUnexpectedEOF }
	if rec := h.do(http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUnauthenticated(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/dashboard", "/api/me", "/api/reports", "/api/tenants"} {
		if rec := h.do(http.MethodGet, path, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
	stale := &http.Cookie{Name: SessionCookie, Value: "nope"}
	if rec := h.do(http.MethodGet, "/api/dashboard", nil, stale); rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale cookie status = %d", rec.Code)
	}
}

func TestSignInRejectsBadToken(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/auth/session", map[string]string{"idToken": "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if h.srv.Sessions().Len() != 0 {
		t.Fatal("no session should be created")
	}
}

func TestMeAndSignOut(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")

	me := decode[core.Identity](t, h.do(http.MethodGet, "/api/me", nil, c))
	if me.UID != "u1" || me.Email != "u1@example.com" {
		t.Fatalf("me = %+v", me)
	}

	if rec := h.do(http.MethodDelete, "/auth/session", nil, c); rec.Code != http.StatusNoContent {
		t.Fatalf("sign out status = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/me", nil, c); rec.Code != http.StatusUnauthorized {
		t.Fatalf("after sign out status = %d", rec.Code)
	}
	if h.store.Subscribers("u1") != 0 {
		t.Fatal("subscription should be released on sign out")
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing tenant", income("6000", "", "2026-01-05"), "tenantName"},
		{"zero amount", income("0", "Asha", "2026-01-05"), "amount"},
		{"bad date", income("6000", "Asha", "05/01/2026"), "date"},
		{"bad type", map[string]any{"type": "gift", "amount": "1", "description": "x", "date": "2026-01-05"}, "type"},
		{"empty description", map[string]any{"type": "expense", "amount": 300, "description": " ", "date": "2026-01-05"}, "description"},
		{"unknown field", map[string]any{"type": "expense", "amount": "1", "description": "x", "date": "2026-01-05", "extra": true}, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/transactions", tt.body, c)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
			}
			if got := decode[errorBody](t, rec); got.Field != tt.field {
				t.Fatalf("field = %q, want %q", got.Field, tt.field)
			}
		})
	}
}

func TestDashboardReflectsCreateAndDelete(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")

	rec := h.do(http.MethodPost, "/api/transactions", income("6000", "Asha", "2026-01-05"), c)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body)
	}
	id := decode[map[string]string](t, rec)["id"]

	rec = h.do(http.MethodPost, "/api/transactions", map[string]any{"type": "expense", "amount": "300,50", "description": "plumber", "date": "2026-01-10"}, c)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expense status = %d body = %s", rec.Code, rec.Body)
	}

	d := h.waitDashboard(c, func(d dashboardJSON) bool { return len(d.Recent) == 2 })
	if !d.Ready || d.Degraded {
		t.Fatalf("unexpected flags %+v", d)
	}
	if d.Totals.Net.String() != "5699.5" || d.Totals.NetFormatted != "₹5,699.50" {
		t.Fatalf("totals = %+v", d.Totals)
	}
	if len(d.Chart) != 1 || d.Chart[0].Label != "January 2026" {
		t.Fatalf("chart = %+v", d.Chart)
	}
	if d.Recent[0].Description != "plumber" || d.Recent[0].TenantName != nil {
		t.Fatalf("recent[0] = %+v", d.Recent[0])
	}

	if rec := h.do(http.MethodDelete, "/api/transactions/"+id, nil, c); rec.Code != http.StatusPreconditionRequired {
		t.Fatalf("unconfirmed delete status = %d", rec.Code)
	}
	if rec := h.do(http.MethodDelete, "/api/transactions/"+id+"?confirm=true", nil, c); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d body = %s", rec.Code, rec.Body)
	}
	h.waitDashboard(c, func(d dashboardJSON) bool { return len(d.Recent) == 1 })

	if rec := h.do(http.MethodDelete, "/api/transactions/"+id+"?confirm=true", nil, c); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestDeleteForeignRecord(t *testing.T) {
	h := newHarness(t)
	alice := h.signIn("alice")
	bob := h.signIn("bob")

	rec := h.do(http.MethodPost, "/api/transactions", income("100", "Ravi", "2026-02-01"), alice)
	id := decode[map[string]string](t, rec)["id"]

	if rec := h.do(http.MethodDelete, "/api/transactions/"+id+"?confirm=true", nil, bob); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListFilters(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")
	for _, b := range []any{
		income("6000", "Asha", "2026-01-05"),
		income("4500", "Ravi", "2026-02-07"),
		income("6000", "Asha", "2026-02-05"),
	} {
		if rec := h.do(http.MethodPost, "/api/transactions", b, c); rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
	}
	h.waitDashboard(c, func(d dashboardJSON) bool { return len(d.Recent) == 3 })

	list := decode[transactionListJSON](t, h.do(http.MethodGet, "/api/transactions?month=2026-02&tenant=Asha", nil, c))
	if len(list.Transactions) != 1 || list.Transactions[0].Date.String() != "2026-02-05" {
		t.Fatalf("filtered = %+v", list.Transactions)
	}
	if rec := h.do(http.MethodGet, "/api/transactions?month=Feb", nil, c); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad month status = %d", rec.Code)
	}
}

func TestReportsAndDrillDown(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")
	h.do(http.MethodPost, "/api/transactions", income("6000", "Asha", "2026-01-05"), c)
	h.do(http.MethodPost, "/api/transactions", income("5000", "Asha", "2026-02-05"), c)
	h.store.Seed(core.Transaction{OwnerID: "u1", Amount: core.MoneyFromInt(-20), Description: "legacy"})

	reports := decode[reportsJSON](t, h.do(http.MethodGet, "/api/reports", nil, c))
	if len(reports.Months) != 3 {
		t.Fatalf("months = %+v", reports.Months)
	}
	if reports.Months[0].Label != "February 2026" || reports.Months[2].Label != "Unknown" {
		t.Fatalf("order = %s, %s", reports.Months[0].Label, reports.Months[2].Label)
	}
	if reports.Totals.Income.String() != "11000" {
		t.Fatalf("totals = %+v", reports.Totals)
	}

	h.waitDashboard(c, func(d dashboardJSON) bool { return len(d.Recent) == 2 })
	detail := decode[monthDetailJSON](t, h.do(http.MethodGet, "/api/reports/months/2026-01", nil, c))
	if detail.Month.Count != 1 || len(detail.Transactions) != 1 {
		t.Fatalf("detail = %+v", detail)
	}
	empty := decode[monthDetailJSON](t, h.do(http.MethodGet, "/api/reports/months/2025-06", nil, c))
	if empty.Month.Count != 0 || len(empty.Transactions) != 0 || empty.Month.Label != "June 2025" {
		t.Fatalf("empty detail = %+v", empty)
	}
	if rec := h.do(http.MethodGet, "/api/reports/months/nope", nil, c); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad month status = %d", rec.Code)
	}
}

func TestStatementPDF(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")
	h.do(http.MethodPost, "/api/transactions", income("6000", "Asha", "2026-01-05"), c)

	rec := h.do(http.MethodGet, "/api/reports/statement.pdf?month=2026-01", nil, c)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("status = %d type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("body is not a PDF")
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "2026-01") {
		t.Fatalf("disposition = %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestTenantsContactsAndReminder(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")
	h.do(http.MethodPost, "/api/transactions", income("6000", "Asha Rao", "2026-01-05"), c)
	h.do(http.MethodPost, "/api/transactions", income("4500", "Ravi", "2026-01-07"), c)

	if rec := h.do(http.MethodPut, "/api/tenants/Asha%20Rao/contact", map[string]string{"phone": "12"}, c); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad phone status = %d", rec.Code)
	}
	rec := h.do(http.MethodPut, "/api/tenants/Asha%20Rao/contact", map[string]string{"phone": "+91 98765-43210"}, c)
	if rec.Code != http.StatusOK {
		t.Fatalf("contact status = %d body = %s", rec.Code, rec.Body)
	}

	tenants := decode[tenantsJSON](t, h.do(http.MethodGet, "/api/tenants", nil, c))
	if len(tenants.Tenants) != 2 {
		t.Fatalf("tenants = %+v", tenants.Tenants)
	}
	if tenants.Tenants[0].Name != "Asha Rao" || tenants.Tenants[0].Phone != "+919876543210" || tenants.Tenants[1].Phone != "" {
		t.Fatalf("phones = %+v", tenants.Tenants)
	}
	if tenants.Tenants[0].TotalPaidFormatted != "₹6,000.00" {
		t.Fatalf("formatted = %q", tenants.Tenants[0].TotalPaidFormatted)
	}

	rem := decode[reminderJSON](t, h.do(http.MethodGet, "/api/tenants/Asha%20Rao/reminder", nil, c))
	if rem.Subject != "Rent Reminder: Asha Rao" || !strings.HasPrefix(rem.Mail, "mailto:?subject=") {
		t.Fatalf("reminder = %+v", rem)
	}
	if !strings.HasPrefix(rem.Chat, "https://wa.me/919876543210?text=") {
		t.Fatalf("chat = %q", rem.Chat)
	}
	rem = decode[reminderJSON](t, h.do(http.MethodGet, "/api/tenants/Ravi/reminder", nil, c))
	if rem.Chat != "" {
		t.Fatalf("no phone, no chat link: %q", rem.Chat)
	}
}

func TestFeedbackAndPreferences(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")

	fb := decode[map[string]string](t, h.do(http.MethodGet, "/api/feedback", nil, c))
	if !strings.HasPrefix(fb["mail"], "mailto:feedback@rently.app?subject=Rently%20Feedback") {
		t.Fatalf("feedback = %q", fb["mail"])
	}

	if p := decode[preferencesJSON](t, h.do(http.MethodGet, "/api/settings/preferences", nil, c)); p.Notifications {
		t.Fatal("default should be off")
	}
	rec := h.do(http.MethodPut, "/api/settings/preferences", preferencesJSON{Notifications: true}, c)
	var pref *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == PreferenceCookie {
			pref = ck
		}
	}
	if pref == nil || pref.Value != "true" || pref.MaxAge != preferenceMaxAge {
		t.Fatalf("preference cookie = %+v", pref)
	}
	if p := decode[preferencesJSON](t, h.do(http.MethodGet, "/api/settings/preferences", nil, c, pref)); !p.Notifications {
		t.Fatal("preference not read back")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("status = %d headers = %v", rec.Code, rec.Header())
	}
}

func TestStreamSendsDashboardEvents(t *testing.T) {
	h := newHarness(t)
	c := h.signIn("u1")

	ts := httptest.NewServer(h.srv.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	req.AddCookie(c)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	events := make(chan dashboardJSON, 8)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				var d dashboardJSON
				if json.Unmarshal([]byte(data), &d) == nil {
					events <- d
				}
			}
		}
	}()

	select {
	case <-events:
	case <-ctx.Done():
		t.Fatal("no initial event")
	}

	h.do(http.MethodPost, "/api/transactions", income("6000", "Asha", "2026-01-05"), c)
	for {
		select {
		case d, ok := <-events:
			if !ok {
				t.Fatal("stream closed early")
			}
			if len(d.Recent) == 1 {
				return
			}
		case <-ctx.Done():
			t.Fatal("create never reached the stream")
		}
	}
}

func TestSessionsEndWithShutdown(t *testing.T) {
	h := newHarness(t)
	h.signIn("u1")
	if h.store.Subscribers("u1") != 1 {
		t.Fatalf("subscribers = %d", h.store.Subscribers("u1"))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if h.srv.Sessions().Len() != 0 || h.store.Subscribers("u1") != 0 {
		t.Fatal("sessions should be released on shutdown")
	}
}
