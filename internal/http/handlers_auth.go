package http

import (
	"context"
	"net/http"
	"time"

	"rently/internal/core"
	applog "rently/internal/log"
	"rently/internal/session"
)

type ctxKey int

const sessionKeyCtx ctxKey = iota

// sessionHandler is a handler that runs only for signed-in callers.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// requireSession resolves the session cookie and answers 401 without one.
func (s *Server) requireSession(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			UnauthorizedError().Write(w)
			return
		}
		sess, ok := s.sessions.Lookup(c.Value)
		if !ok {
			s.clearSessionCookie(w)
			UnauthorizedError().Write(w)
			return
		}
		id, _ := sess.Identity()
		logger := applog.FromContext(r.Context()).With(applog.FieldOwner, id.UID)
		ctx := applog.WithContext(r.Context(), logger)
		ctx = context.WithValue(ctx, sessionKeyCtx, c.Value)
		next(w, r.WithContext(ctx), sess)
	})
}

type signInRequest struct {
	IDToken string `json:"idToken"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "sign_in", err)
		return
	}

	id, err := s.deps.Verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, r, "sign_in", err)
		return
	}

	// A browser signing in again drops whatever it held before.
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.sessions.Close(c.Value)
	}

	key, _, err := s.sessions.Open(r.Context(), id)
	if err != nil {
		writeError(w, r, "sign_in", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	applog.FromContext(r.Context()).InfoContext(r.Context(), "User signed in", applog.FieldOwner, id.UID)
	NewJSONResponse().Data(id).Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, _ := sess.Identity()
	if key, ok := r.Context().Value(sessionKeyCtx).(string); ok {
		s.sessions.Close(key)
	}
	s.clearSessionCookie(w)

	if err := s.deps.Verifier.Revoke(r.Context(), id.UID); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Token revocation failed", applog.FieldError, err)
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "User signed out")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := sess.Identity()
	if !ok {
		writeError(w, r, "me", &core.AuthError{Op: "me", Err: core.ErrUnauthenticated})
		return
	}
	NewJSONResponse().Data(id).Write(w)
}
