package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rently/internal/cache"
	"rently/internal/core"
	applog "rently/internal/log"
	"rently/internal/session"
	"rently/internal/store"
)

// SessionCookie carries the opaque id of a signed-in browser session.
const SessionCookie = "rently_session"

// SessionRegistry maps cookie ids to live sessions. Entries expire after a
// period without requests; whatever leaves the registry is released.
type SessionRegistry struct {
	gw       store.Gateway
	sessions *cache.LRUCache[*session.Session]
}

func NewSessionRegistry(gw store.Gateway, maxSessions int, ttl time.Duration) *SessionRegistry {
	onEvict := func(id string, s *session.Session) {
		s.Release()
		slog.Debug("Session released", applog.FieldComponent, applog.ComponentSession, applog.FieldSession, shortID(id))
	}
	return &SessionRegistry{
		gw:       gw,
		sessions: cache.NewLRUCache(maxSessions, ttl, cache.WithOnEvict(onEvict)),
	}
}

// Open establishes a session for id and returns its cookie value.
func (r *SessionRegistry) Open(ctx context.Context, id core.Identity) (string, *session.Session, error) {
	s := session.New(r.gw)
	if err := s.Establish(ctx, id); err != nil {
		return "", nil, err
	}
	key := uuid.NewString()
	r.sessions.Set(key, s)
	return key, s, nil
}

// Lookup returns the signed-in session behind key.
func (r *SessionRegistry) Lookup(key string) (*session.Session, bool) {
	if key == "" {
		return nil, false
	}
	s, ok := r.sessions.Get(key)
	if !ok {
		return nil, false
	}
	if _, signedIn := s.Identity(); !signedIn {
		return nil, false
	}
	return s, true
}

// Close signs the session out.
func (r *SessionRegistry) Close(key string) {
	r.sessions.Delete(key)
}

func (r *SessionRegistry) Len() int {
	return r.sessions.Size()
}

// CleanExpired lets a cache.Janitor sweep idle sessions.
func (r *SessionRegistry) CleanExpired() int {
	return r.sessions.CleanExpired()
}

// CloseAll releases every session, ending their live streams.
func (r *SessionRegistry) CloseAll() {
	r.sessions.Purge()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
