// Package http serves the ledger's JSON API: sign-in, the live dashboard and
// its event stream, transactions, reports, tenants and settings.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"rently/internal/auth"
	"rently/internal/cache"
	"rently/internal/config"
	applog "rently/internal/log"
	"rently/internal/middleware/cors"
	"rently/internal/middleware/ratelimit"
	"rently/internal/middleware/security"
	"rently/internal/middleware/trace"
	"rently/internal/report"
	"rently/internal/store"
)

// Deps are the collaborators the handlers call.
type Deps struct {
	// Gateway backs every session. Usually the publishing ledger service.
	Gateway  store.Gateway
	Contacts store.ContactStore
	Verifier auth.Verifier
	// Ready is probed by /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Options struct {
	CookieSecure       bool
	SessionTTL         time.Duration
	MaxSessions        int
	AllowedOrigins     []string
	RateLimitPerMinute int
	FeedbackEmail      string
	CurrencySymbol     string
	CurrencyCode       string
	Logger             *applog.Logger
}

// OptionsFromConfig copies the HTTP related settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CookieSecure:       cfg.CookieSecure,
		SessionTTL:         cfg.SessionTTL,
		MaxSessions:        cfg.MaxSessions,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		FeedbackEmail:      cfg.FeedbackEmail,
		CurrencySymbol:     cfg.CurrencySymbol,
		CurrencyCode:       cfg.CurrencyCode,
	}
}

type Server struct {
	http.Server

	deps     Deps
	opts     Options
	logger   *applog.Logger
	format   report.Formatter
	sessions *SessionRegistry
	limiter  *ratelimit.Limiter
	detector *security.Detector
	janitor  *cache.Janitor
	tracer   *trace.Middleware
}

// NewServer wires routes and middleware and starts the session sweeper. Call
// Shutdown to stop it.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.Default().Handler()})
	}

	s := &Server{
		deps:     deps,
		opts:     opts,
		logger:   opts.Logger.WithComponent(applog.ComponentHTTP),
		format:   report.Formatter{Symbol: opts.CurrencySymbol, Code: opts.CurrencyCode},
		sessions: NewSessionRegistry(deps.Gateway, opts.MaxSessions, opts.SessionTTL),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		janitor:  cache.NewJanitor(),
	}
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)

	s.janitor.Register(s.sessions)
	s.janitor.Start(time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Streams clear their own write deadline.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.HandleFunc("/auth/session", s.handleSignIn).Methods(http.MethodPost)
	r.Handle("/auth/session", s.requireSession(s.handleSignOut)).Methods(http.MethodDelete)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/me", s.requireSession(s.handleMe)).Methods(http.MethodGet)
	api.Handle("/dashboard", s.requireSession(s.handleDashboard)).Methods(http.MethodGet)
	api.Handle("/stream", s.requireSession(s.handleStream)).Methods(http.MethodGet)

	api.Handle("/transactions", s.requireSession(s.handleListTransactions)).Methods(http.MethodGet)
	api.Handle("/transactions", s.requireSession(s.handleCreateTransaction)).Methods(http.MethodPost)
	api.Handle("/transactions/{id}", s.requireSession(s.handleDeleteTransaction)).Methods(http.MethodDelete)

	api.Handle("/reports", s.requireSession(s.handleReports)).Methods(http.MethodGet)
	api.Handle("/reports/statement.pdf", s.requireSession(s.handleStatement)).Methods(http.MethodGet)
	api.Handle("/reports/months/{month}", s.requireSession(s.handleMonthDetail)).Methods(http.MethodGet)

	api.Handle("/tenants", s.requireSession(s.handleTenants)).Methods(http.MethodGet)
	api.Handle("/tenants/{name}/contact", s.requireSession(s.handleUpsertContact)).Methods(http.MethodPut)
	api.Handle("/tenants/{name}/reminder", s.requireSession(s.handleReminder)).Methods(http.MethodGet)

	api.Handle("/feedback", s.requireSession(s.handleFeedback)).Methods(http.MethodGet)
	api.Handle("/settings/preferences", s.requireSession(s.handleGetPreferences)).Methods(http.MethodGet)
	api.Handle("/settings/preferences", s.requireSession(s.handlePutPreferences)).Methods(http.MethodPut)

	return r
}

// middleware wraps h, outermost first: trace, headers, screening, CORS, rate
// limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldComponent, applog.ComponentRateLimit,
			applog.FieldClientIP, s.detector.ExtractClientIP(r), applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})(h)
	h = cors.Middleware(s.opts.AllowedOrigins)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

// rateLimitKey buckets signed-in callers by session and the rest by address.
func (s *Server) rateLimitKey(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return "s:" + c.Value
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

// Sessions exposes the registry, for tests and diagnostics.
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

// Shutdown releases every session first so open streams end, then drains the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.CloseAll()
	s.janitor.Stop(true)
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness probe failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "backend not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]any{
		"status":   "ready",
		"sessions": s.sessions.Len(),
	}).Write(w)
}
