// Package memory is an in-process transaction store for development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rently/internal/core"
	"rently/internal/ledger"
	"rently/internal/store"
)

type Store struct {
	mu       sync.Mutex
	records  []core.Transaction
	contacts map[string]core.TenantContact
	hub      *store.Hub
	now      func() time.Time
}

var (
	_ store.Gateway      = (*Store)(nil)
	_ store.ContactStore = (*Store)(nil)
)

func New() *Store {
	s := &Store{
		contacts: make(map[string]core.TenantContact),
		now:      time.Now,
	}
	s.hub = store.NewHub(s.QueryOnce)
	return s
}

// Seed inserts records as they are, keeping their IDs when set. It does not
// notify subscribers.
func (s *Store) Seed(records ...core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.records = append(s.records, r)
	}
}

func (s *Store) Create(ctx context.Context, t core.Transaction) (string, error) {
	if err := core.ValidateOwner(t.OwnerID); err != nil {
		return "", &core.StoreWriteError{Op: "create", Err: err}
	}
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	s.records = append(s.records, t)
	s.mu.Unlock()

	s.hub.Notify(ctx, t.OwnerID)
	return t.ID, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	i := slices.IndexFunc(s.records, func(r core.Transaction) bool { return r.ID == id })
	switch {
	case i < 0:
		s.mu.Unlock()
		return &core.StoreWriteError{Op: "delete", ID: id, Err: core.ErrNotFound}
	case s.records[i].OwnerID != ownerID:
		s.mu.Unlock()
		return &core.StoreWriteError{Op: "delete", ID: id, Err: core.ErrPermission}
	}
	s.records = slices.Delete(s.records, i, i+1)
	s.mu.Unlock()

	s.hub.Notify(ctx, ownerID)
	return nil
}

func (s *Store) QueryOnce(_ context.Context, ownerID string) ([]core.Transaction, error) {
	if err := core.ValidateOwner(ownerID); err != nil {
		return nil, &core.StoreReadError{Op: "query", Err: err}
	}
	s.mu.Lock()
	var out []core.Transaction
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	s.mu.Unlock()
	ledger.SortNewestFirst(out)
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, ownerID string) (store.Subscription, error) {
	return s.hub.Subscribe(ctx, ownerID)
}

// Subscribers reports open subscriptions for ownerID.
func (s *Store) Subscribers(ownerID string) int {
	return s.hub.Subscribers(ownerID)
}

func (s *Store) UpsertContact(_ context.Context, c core.TenantContact) error {
	if err := core.ValidateOwner(c.OwnerID); err != nil {
		return &core.StoreWriteError{Op: "upsert contact", Err: err}
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = core.NormalizePhone(c.Phone)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now().UTC()
	}
	s.mu.Lock()
	s.contacts[c.Key()] = c
	s.mu.Unlock()
	return nil
}

func (s *Store) ListContacts(_ context.Context, ownerID string) ([]core.TenantContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.TenantContact
	for _, c := range s.contacts {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b core.TenantContact) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
