// Package store defines the boundary to the transaction store and the
// in-process fan-out used by backends without a native change stream.
package store

import (
	"context"
	"time"

	"rently/internal/core"
)

// Ports for the transaction store.
type (
	// Reader performs one-shot reads. Records come back newest first.
	Reader interface {
		QueryOnce(ctx context.Context, ownerID string) ([]core.Transaction, error)
	}

	// Writer creates and deletes records. Transactions are never updated.
	Writer interface {
		Create(ctx context.Context, t core.Transaction) (id string, err error)
		Delete(ctx context.Context, ownerID, id string) error
	}

	// Subscriber streams full snapshots of one owner's records.
	Subscriber interface {
		Subscribe(ctx context.Context, ownerID string) (Subscription, error)
	}

	Gateway interface {
		Reader
		Writer
		Subscriber
	}

	// ContactStore keeps tenant phone numbers keyed by owner and sanitized name.
	ContactStore interface {
		UpsertContact(ctx context.Context, c core.TenantContact) error
		ListContacts(ctx context.Context, ownerID string) ([]core.TenantContact, error)
	}

	// Subscription delivers snapshots until Close is called or the context
	// given to Subscribe ends. C is closed afterwards.
	Subscription interface {
		C() <-chan Snapshot
		Close()
	}
)

// Snapshot is the complete, authoritative record list of one owner at a point
// in time. When Err is set, Records is nil and the consumer keeps what it had.
type Snapshot struct {
	OwnerID string
	Records []core.Transaction
	Err     error
	At      time.Time
	// Seq orders snapshots from one source; zero means unordered.
	Seq uint64
}
