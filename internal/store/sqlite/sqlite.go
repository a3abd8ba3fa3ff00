// Package sqlite is the single-node transaction store backed by modernc sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"rently/internal/core"
	"rently/internal/ledger"
	"rently/internal/store"
)

const timeLayout = time.RFC3339Nano

type Repository struct {
	db      *sql.DB
	queries *Queries
	hub     *store.Hub
	now     func() time.Time
}

var (
	_ store.Gateway      = (*Repository)(nil)
	_ store.ContactStore = (*Repository)(nil)
)

// Open creates the database file if needed and applies pending migrations.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r := &Repository{
		db:      db,
		queries: NewQueries(db),
		now:     time.Now,
	}
	r.hub = store.NewHub(r.QueryOnce)
	return r, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Create(ctx context.Context, t core.Transaction) (string, error) {
	if err := core.ValidateOwner(t.OwnerID); err != nil {
		return "", &core.StoreWriteError{Op: "create", Err: err}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	row := transactionRow{
		ID:          uuid.NewString(),
		OwnerID:     t.OwnerID,
		Amount:      t.Amount.String(),
		Type:        string(t.Kind()),
		Description: t.Description,
		Date:        t.Date.String(),
		CreatedAt:   t.CreatedAt.UTC().Format(timeLayout),
	}
	if t.IsIncome() {
		row.TenantName = sql.NullString{String: t.TenantName, Valid: true}
	}

	if err := r.queries.InsertTransaction(ctx, row); err != nil {
		return "", &core.StoreWriteError{Op: "create", Err: err}
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"owner", row.OwnerID,
		"type", row.Type,
		"date", row.Date)

	r.hub.Notify(ctx, t.OwnerID)
	return row.ID, nil
}

func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	owner, err := r.queries.GetTransactionOwner(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &core.StoreWriteError{Op: "delete", ID: id, Err: core.ErrNotFound}
	case err != nil:
		return &core.StoreWriteError{Op: "delete", ID: id, Err: err}
	case owner != ownerID:
		return &core.StoreWriteError{Op: "delete", ID: id, Err: core.ErrPermission}
	}

	n, err := r.queries.DeleteTransaction(ctx, id, ownerID)
	if err != nil {
		return &core.StoreWriteError{Op: "delete", ID: id, Err: err}
	}
	if n == 0 {
		return &core.StoreWriteError{Op: "delete", ID: id, Err: core.ErrNotFound}
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id, "owner", ownerID)
	r.hub.Notify(ctx, ownerID)
	return nil
}

func (r *Repository) QueryOnce(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	if err := core.ValidateOwner(ownerID); err != nil {
		return nil, &core.StoreReadError{Op: "query", Err: err}
	}
	rows, err := r.queries.ListTransactionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, &core.StoreReadError{Op: "query", Err: err}
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toCore()
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable transaction row", "id", row.ID, "error", err)
			continue
		}
		out = append(out, t)
	}
	ledger.SortNewestFirst(out)
	return out, nil
}

func (r *Repository) Subscribe(ctx context.Context, ownerID string) (store.Subscription, error) {
	return r.hub.Subscribe(ctx, ownerID)
}

func (r *Repository) UpsertContact(ctx context.Context, c core.TenantContact) error {
	if err := core.ValidateOwner(c.OwnerID); err != nil {
		return &core.StoreWriteError{Op: "upsert contact", Err: err}
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = r.now()
	}
	err := r.queries.UpsertContact(ctx, contactRow{
		Key:       c.Key(),
		OwnerID:   c.OwnerID,
		Name:      strings.TrimSpace(c.Name),
		Phone:     core.NormalizePhone(c.Phone),
		UpdatedAt: c.UpdatedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return &core.StoreWriteError{Op: "upsert contact", ID: c.Key(), Err: err}
	}
	return nil
}

func (r *Repository) ListContacts(ctx context.Context, ownerID string) ([]core.TenantContact, error) {
	rows, err := r.queries.ListContactsByOwner(ctx, ownerID)
	if err != nil {
		return nil, &core.StoreReadError{Op: "list contacts", Err: err}
	}
	out := make([]core.TenantContact, 0, len(rows))
	for _, row := range rows {
		updated, _ := time.Parse(timeLayout, row.UpdatedAt)
		out = append(out, core.TenantContact{
			OwnerID:   row.OwnerID,
			Name:      row.Name,
			Phone:     row.Phone,
			UpdatedAt: updated,
		})
	}
	return out, nil
}

// toCore converts a row. The amount sign wins over the stored type; an
// unparseable date becomes the zero Date.
func (row transactionRow) toCore() (core.Transaction, error) {
	amount, err := core.MoneyFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", row.Amount, err)
	}
	if kind := core.KindOf(amount); string(kind) != row.Type {
		slog.Warn("Stored type disagrees with amount sign", "id", row.ID, "type", row.Type, "derived", kind)
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		date = core.Date{}
	}
	created, _ := time.Parse(timeLayout, row.CreatedAt)
	return core.Transaction{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Amount:      amount,
		Description: row.Description,
		TenantName:  core.NormalizeTenantName(amount, row.TenantName.String),
		Date:        date,
		CreatedAt:   created,
	}, nil
}
