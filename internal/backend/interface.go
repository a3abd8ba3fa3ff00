// Package backend selects and builds the transaction store named by
// DATA_BACKEND.
package backend

import (
	"context"

	"rently/internal/store"
)

// CleanupFunc releases whatever the backend holds open.
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// Result is a built backend. Gateway and Contacts are usually the same value.
type Result struct {
	Type     Type
	Gateway  store.Gateway
	Contacts store.ContactStore
	Ready    ReadyFunc
	Cleanup  CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
}

type Config struct {
	Type         Type
	SQLiteDBPath string
}

type Type string

const (
	Memory    Type = "memory"
	SQLite    Type = "sqlite"
	Firestore Type = "firestore"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Firestore:
		return true
	default:
		return false
	}
}
