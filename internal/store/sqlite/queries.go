package sqlite

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type transactionRow struct {
	ID          string
	OwnerID     string
	Amount      string
	Type        string
	Description string
	TenantName  sql.NullString
	Date        string
	CreatedAt   string
}

type contactRow struct {
	Key       string
	OwnerID   string
	Name      string
	Phone     string
	UpdatedAt string
}

const insertTransaction = `
INSERT INTO transactions (id, owner_id, amount, type, description, tenant_name, date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, r transactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		r.ID, r.OwnerID, r.Amount, r.Type, r.Description, r.TenantName, r.Date, r.CreatedAt)
	return err
}

const getTransactionOwner = `SELECT owner_id FROM transactions WHERE id = ?`

func (q *Queries) GetTransactionOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := q.db.QueryRowContext(ctx, getTransactionOwner, id).Scan(&owner)
	return owner, err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id, ownerID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listTransactionsByOwner = `
SELECT id, owner_id, amount, type, description, tenant_name, date, created_at
FROM transactions
WHERE owner_id = ?
ORDER BY date DESC, created_at DESC`

func (q *Queries) ListTransactionsByOwner(ctx context.Context, ownerID string) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []transactionRow
	for rows.Next() {
		var r transactionRow
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Amount, &r.Type, &r.Description, &r.TenantName, &r.Date, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertContact = `
INSERT INTO tenant_contacts (key, owner_id, name, phone, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    name = excluded.name,
    phone = excluded.phone,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertContact(ctx context.Context, r contactRow) error {
	_, err := q.db.ExecContext(ctx, upsertContact, r.Key, r.OwnerID, r.Name, r.Phone, r.UpdatedAt)
	return err
}

const listContactsByOwner = `
SELECT key, owner_id, name, phone, updated_at
FROM tenant_contacts
WHERE owner_id = ?
ORDER BY name`

func (q *Queries) ListContactsByOwner(ctx context.Context, ownerID string) ([]contactRow, error) {
	rows, err := q.db.QueryContext(ctx, listContactsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []contactRow
	for rows.Next() {
		var r contactRow
		if err := rows.Scan(&r.Key, &r.OwnerID, &r.Name, &r.Phone, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}
