// Package firestore is the production transaction store. Subscriptions ride
// Firestore's own snapshot listener, so every backend write reaches every
// subscriber without an in-process hub.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rently/internal/core"
	"rently/internal/ledger"
	"rently/internal/store"
)

const (
	TransactionsCollection = "transactions"
	ContactsCollection     = "tenant_contacts"
)

type Store struct {
	client *firestore.Client
}

var (
	_ store.Gateway      = (*Store)(nil)
	_ store.ContactStore = (*Store)(nil)
)

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

type transactionDoc struct {
	UID         string    `firestore:"uid"`
	Amount      float64   `firestore:"amount"`
	Type        string    `firestore:"type"`
	Description string    `firestore:"description"`
	TenantName  *string   `firestore:"tenantName"`
	Date        string    `firestore:"date"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
}

type contactDoc struct {
	UID       string    `firestore:"uid"`
	Name      string    `firestore:"name"`
	Phone     string    `firestore:"phone"`
	UpdatedAt time.Time `firestore:"updatedAt,serverTimestamp"`
}

// toDoc writes type from the amount sign so the stored field can never
// disagree with the amount.
func toDoc(t core.Transaction) transactionDoc {
	doc := transactionDoc{
		UID:         t.OwnerID,
		Amount:      t.Amount.Float64(),
		Type:        string(t.Kind()),
		Description: t.Description,
		Date:        t.Date.String(),
		CreatedAt:   t.CreatedAt,
	}
	if t.IsIncome() {
		name := t.TenantName
		doc.TenantName = &name
	}
	return doc
}

func fromDoc(id string, doc transactionDoc) core.Transaction {
	amount := core.MoneyFromFloat(doc.Amount)
	if kind := core.KindOf(amount); doc.Type != "" && string(kind) != doc.Type {
		slog.Warn("Stored type disagrees with amount sign", "id", id, "type", doc.Type, "derived", kind)
	}
	var tenant string
	if doc.TenantName != nil {
		tenant = *doc.TenantName
	}
	date, err := core.ParseDate(doc.Date)
	if err != nil {
		date = core.Date{}
	}
	return core.Transaction{
		ID:          id,
		OwnerID:     doc.UID,
		Amount:      amount,
		Description: doc.Description,
		TenantName:  core.NormalizeTenantName(amount, tenant),
		Date:        date,
		CreatedAt:   doc.CreatedAt,
	}
}

func (s *Store) ownerQuery(ownerID string) firestore.Query {
	return s.client.Collection(TransactionsCollection).Where("uid", "==", ownerID)
}

func (s *Store) Create(ctx context.Context, t core.Transaction) (string, error) {
	if err := core.ValidateOwner(t.OwnerID); err != nil {
		return "", &core.StoreWriteError{Op: "create", Err: err}
	}
	ref, _, err := s.client.Collection(TransactionsCollection).Add(ctx, toDoc(t))
	if err != nil {
		return "", &core.StoreWriteError{Op: "create", Err: err}
	}
	slog.InfoContext(ctx, "Transaction saved to Firestore", "id", ref.ID, "owner", t.OwnerID)
	return ref.ID, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	ref := s.client.Collection(TransactionsCollection).Doc(id)
	snap, err := ref.Get(ctx)
	if err != nil {
		return &core.StoreWriteError{Op: "delete", ID: id, Err: mapCode(err)}
	}
	var doc transactionDoc
	if err := snap.DataTo(&doc); err != nil {
		return &core.StoreWriteError{Op: "delete", ID: id, Err: err}
	}
	if doc.UID != ownerID {
		return &core.StoreWriteError{Op: "delete", ID: id, Err: core.ErrPermission}
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return &core.StoreWriteError{Op: "delete", ID: id, Err: mapCode(err)}
	}
	slog.InfoContext(ctx, "Transaction deleted from Firestore", "id", id, "owner", ownerID)
	return nil
}

func (s *Store) QueryOnce(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	if err := core.ValidateOwner(ownerID); err != nil {
		return nil, &core.StoreReadError{Op: "query", Err: err}
	}
	records, err := readAll(ctx, s.ownerQuery(ownerID).Documents(ctx))
	if err != nil {
		return nil, &core.StoreReadError{Op: "query", Err: mapCode(err)}
	}
	return records, nil
}

// Subscribe attaches a snapshot listener. Each listener event is delivered as
// a full record list; a listener error is delivered once and ends the
// subscription.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (store.Subscription, error) {
	if err := core.ValidateOwner(ownerID); err != nil {
		return nil, &core.StoreReadError{Op: "subscribe", Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	feed := store.NewFeed(cancel)
	it := s.ownerQuery(ownerID).Snapshots(ctx)

	go func() {
		defer feed.Close()
		defer it.Stop()

		var seq uint64
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				slog.WarnContext(ctx, "Firestore listener failed", "owner", ownerID, "error", err)
				seq++
				feed.Publish(store.Snapshot{
					OwnerID: ownerID,
					Err:     &core.StoreReadError{Op: "subscribe", Err: mapCode(err)},
					At:      time.Now(),
					Seq:     seq,
				})
				return
			}

			records, err := readAll(ctx, qs.Documents)
			seq++
			snap := store.Snapshot{OwnerID: ownerID, Records: records, At: qs.ReadTime, Seq: seq}
			if err != nil {
				snap.Records = nil
				snap.Err = &core.StoreReadError{Op: "subscribe", Err: mapCode(err)}
			}
			feed.Publish(snap)
		}
	}()

	return feed, nil
}

func (s *Store) UpsertContact(ctx context.Context, c core.TenantContact) error {
	if err := core.ValidateOwner(c.OwnerID); err != nil {
		return &core.StoreWriteError{Op: "upsert contact", Err: err}
	}
	doc := contactDoc{
		UID:       c.OwnerID,
		Name:      strings.TrimSpace(c.Name),
		Phone:     core.NormalizePhone(c.Phone),
		UpdatedAt: c.UpdatedAt,
	}
	if _, err := s.client.Collection(ContactsCollection).Doc(c.Key()).Set(ctx, doc); err != nil {
		return &core.StoreWriteError{Op: "upsert contact", ID: c.Key(), Err: mapCode(err)}
	}
	return nil
}

func (s *Store) ListContacts(ctx context.Context, ownerID string) ([]core.TenantContact, error) {
	iter := s.client.Collection(ContactsCollection).Where("uid", "==", ownerID).Documents(ctx)
	defer iter.Stop()

	var out []core.TenantContact
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &core.StoreReadError{Op: "list contacts", Err: mapCode(err)}
		}
		var doc contactDoc
		if err := snap.DataTo(&doc); err != nil {
			slog.WarnContext(ctx, "Skipping unreadable contact", "id", snap.Ref.ID, "error", err)
			continue
		}
		out = append(out, core.TenantContact{OwnerID: doc.UID, Name: doc.Name, Phone: doc.Phone, UpdatedAt: doc.UpdatedAt})
	}
	return out, nil
}

func readAll(ctx context.Context, iter *firestore.DocumentIterator) ([]core.Transaction, error) {
	defer iter.Stop()
	var out []core.Transaction
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			slog.WarnContext(ctx, "Skipping unreadable transaction", "id", snap.Ref.ID, "error", err)
			continue
		}
		out = append(out, fromDoc(snap.Ref.ID, doc))
	}
	ledger.SortNewestFirst(out)
	return out, nil
}

func mapCode(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %v", core.ErrPermission, err)
	default:
		return err
	}
}
