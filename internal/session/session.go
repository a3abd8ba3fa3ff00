// Package session holds the per-user context: who is signed in, the live
// record snapshot for that user, and the guard against duplicate actions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"rently/internal/core"
	applog "rently/internal/log"
	"rently/internal/store"
)

// View is a read-only copy of the session's snapshot state.
type View struct {
	Records []core.Transaction
	// Ready is false until the first snapshot for the current owner lands.
	Ready bool
	// Err is the last delivery failure. Records are then the last good list.
	Err     error
	At      time.Time
	Version uint64
}

type Session struct {
	gw  store.Gateway
	now func() time.Time

	// lifecycle serializes Establish and Release.
	lifecycle sync.Mutex

	mu       sync.RWMutex
	identity *core.Identity
	gen      uint64
	cancel   context.CancelFunc
	sub      store.Subscription
	view     View
	watchers map[chan struct{}]struct{}

	flight singleflight.Group
}

func New(gw store.Gateway) *Session {
	return &Session{
		gw:       gw,
		now:      time.Now,
		watchers: make(map[chan struct{}]struct{}),
	}
}

// Establish signs id in. Any previous subscription is released first, so
// nothing of a former owner survives into the new session.
func (s *Session) Establish(ctx context.Context, id core.Identity) error {
	if err := core.ValidateOwner(id.UID); err != nil {
		return &core.AuthError{Op: "establish", Err: err}
	}
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.release()

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := s.gw.Subscribe(subCtx, id.UID)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe: %w", err)
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	ident := id
	s.identity = &ident
	s.cancel = cancel
	s.sub = sub
	s.mu.Unlock()

	go s.pump(gen, sub)

	slog.InfoContext(ctx, "Session established", applog.FieldComponent, applog.ComponentSession, applog.FieldOwner, id.UID)
	return nil
}

// Release signs out: the subscription is closed before Release returns and
// the cached snapshot cleared. It is safe to call on an idle session.
func (s *Session) Release() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.release()
}

func (s *Session) release() {
	s.mu.Lock()
	s.gen++
	cancel, sub := s.cancel, s.sub
	s.cancel, s.sub = nil, nil
	had := s.identity != nil
	s.identity = nil
	s.view = View{Version: s.view.Version + 1}
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
	if had {
		s.broadcast()
	}
}

func (s *Session) pump(gen uint64, sub store.Subscription) {
	defer sub.Close()
	for snap := range sub.C() {
		if !s.apply(gen, snap) {
			return
		}
	}
	s.mu.Lock()
	if s.gen == gen && s.view.Err == nil {
		s.view.Err = &core.StoreReadError{Op: "subscribe", Err: fmt.Errorf("subscription ended")}
		s.view.Version++
	}
	s.mu.Unlock()
}

// apply stores snap if it belongs to the current generation. It reports
// whether the pump should keep going.
func (s *Session) apply(gen uint64, snap store.Snapshot) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	if snap.Err != nil {
		s.view.Err = snap.Err
		slog.Warn("Snapshot delivery failed, keeping last records",
			applog.FieldComponent, applog.ComponentSession,
			applog.FieldOperation, applog.OpSubscribe,
			applog.FieldOwner, snap.OwnerID,
			applog.FieldError, snap.Err)
	} else {
		s.view.Records = snap.Records
		s.view.Ready = true
		s.view.Err = nil
	}
	s.view.At = snap.At
	s.view.Version++
	s.mu.Unlock()

	s.broadcast()
	return true
}

// Identity returns the signed-in user.
func (s *Session) Identity() (core.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return core.Identity{}, false
	}
	return *s.identity, true
}

// Current returns a copy of the snapshot state.
func (s *Session) Current() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.view
	v.Records = slices.Clone(s.view.Records)
	return v
}

// Watch returns a channel that receives a signal after every snapshot change,
// coalesced. The returned func unregisters it.
func (s *Session) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, ch)
			s.mu.Unlock()
		})
	}
}

func (s *Session) broadcast() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Session) owner(op string) (string, error) {
	id, ok := s.Identity()
	if !ok {
		return "", &core.AuthError{Op: op, Err: core.ErrUnauthenticated}
	}
	return id.UID, nil
}

// Create validates draft and stores it. Identical drafts submitted while one
// is in flight share its result. The record shows up with the next snapshot.
func (s *Session) Create(ctx context.Context, draft core.NewTransaction) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}
	owner, err := s.owner("create")
	if err != nil {
		return "", err
	}
	key := "create:" + owner + ":" + draft.Fingerprint()
	v, err, shared := s.flight.Do(key, func() (any, error) {
		return s.gw.Create(ctx, draft.Record(owner, s.now()))
	})
	if shared {
		slog.DebugContext(ctx, "Duplicate create collapsed", "owner", owner)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Delete removes one of the owner's records. Concurrent deletes of the same id
// share one store call.
func (s *Session) Delete(ctx context.Context, id string) error {
	owner, err := s.owner("delete")
	if err != nil {
		return err
	}
	_, err, _ = s.flight.Do("delete:"+owner+":"+id, func() (any, error) {
		return nil, s.gw.Delete(ctx, owner, id)
	})
	return err
}

// QueryOnce reads the owner's records without touching the live snapshot.
func (s *Session) QueryOnce(ctx context.Context) ([]core.Transaction, error) {
	owner, err := s.owner("query")
	if err != nil {
		return nil, err
	}
	return s.gw.QueryOnce(ctx, owner)
}
