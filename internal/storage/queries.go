package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type TransactionSnapshot struct {
	QueryKey         string
	HasMore          bool
	TransactionCount int64
	FetchedAt        string
}

type SnapshotTransaction struct {
	QueryKey      string
	Position      int64
	TransactionID int64
	Date          string
	Payee         string
	Amount        string
	Currency      string
	ToBase        float64
	IsIncome      bool
	Payload       string
}

type Account struct {
	ID              int64
	Name            string
	DisplayName     string
	Type            string
	Subtype         string
	Mask            string
	InstitutionName string
	Status          string
	Balance         string
	Currency        string
	UpdatedAt       string
}

const upsertTransactionSnapshot = `
INSERT INTO transaction_snapshots (query_key, has_more, transaction_count, fetched_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(query_key) DO UPDATE SET
    has_more = excluded.has_more,
    transaction_count = excluded.transaction_count,
    fetched_at = excluded.fetched_at
`

type UpsertTransactionSnapshotParams struct {
	QueryKey         string
	HasMore          bool
	TransactionCount int64
	FetchedAt        string
}

func (q *Queries) UpsertTransactionSnapshot(ctx context.Context, arg UpsertTransactionSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertTransactionSnapshot,
		arg.QueryKey,
		arg.HasMore,
		arg.TransactionCount,
		arg.FetchedAt,
	)
	return err
}

const getTransactionSnapshot = `
SELECT query_key, has_more, transaction_count, fetched_at
FROM transaction_snapshots
WHERE query_key = ?
`

func (q *Queries) GetTransactionSnapshot(ctx context.Context, queryKey string) (TransactionSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getTransactionSnapshot, queryKey)
	var i TransactionSnapshot
	err := row.Scan(
		&i.QueryKey,
		&i.HasMore,
		&i.TransactionCount,
		&i.FetchedAt,
	)
	return i, err
}

const deleteSnapshotTransactions = `
DELETE FROM snapshot_transactions WHERE query_key = ?
`

func (q *Queries) DeleteSnapshotTransactions(ctx context.Context, queryKey string) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshotTransactions, queryKey)
	return err
}

const insertSnapshotTransaction = `
INSERT INTO snapshot_transactions (
    query_key, position, transaction_id, date, payee, amount, currency, to_base, is_income, payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertSnapshotTransactionParams struct {
	QueryKey      string
	Position      int64
	TransactionID int64
	Date          string
	Payee         string
	Amount        string
	Currency      string
	ToBase        float64
	IsIncome      bool
	Payload       string
}

func (q *Queries) InsertSnapshotTransaction(ctx context.Context, arg InsertSnapshotTransactionParams) error {
	_, err := q.db.ExecContext(ctx, insertSnapshotTransaction,
		arg.QueryKey,
		arg.Position,
		arg.TransactionID,
		arg.Date,
		arg.Payee,
		arg.Amount,
		arg.Currency,
		arg.ToBase,
		arg.IsIncome,
		arg.Payload,
	)
	return err
}

const listSnapshotTransactions = `
SELECT query_key, position, transaction_id, date, payee, amount, currency, to_base, is_income, payload
FROM snapshot_transactions
WHERE query_key = ?
ORDER BY position
`

func (q *Queries) ListSnapshotTransactions(ctx context.Context, queryKey string) ([]SnapshotTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshotTransactions, queryKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotTransaction
	for rows.Next() {
		var i SnapshotTransaction
		if err := rows.Scan(
			&i.QueryKey,
			&i.Position,
			&i.TransactionID,
			&i.Date,
			&i.Payee,
			&i.Amount,
			&i.Currency,
			&i.ToBase,
			&i.IsIncome,
			&i.Payload,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAccounts = `
DELETE FROM accounts
`

func (q *Queries) DeleteAccounts(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAccounts)
	return err
}

const insertAccount = `
INSERT INTO accounts (
    id, name, display_name, type, subtype, mask, institution_name, status, balance, currency, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertAccountParams struct {
	ID              int64
	Name            string
	DisplayName     string
	Type            string
	Subtype         string
	Mask            string
	InstitutionName string
	Status          string
	Balance         string
	Currency        string
	UpdatedAt       string
}

func (q *Queries) InsertAccount(ctx context.Context, arg InsertAccountParams) error {
	_, err := q.db.ExecContext(ctx, insertAccount,
		arg.ID,
		arg.Name,
		arg.DisplayName,
		arg.Type,
		arg.Subtype,
		arg.Mask,
		arg.InstitutionName,
		arg.Status,
		arg.Balance,
		arg.Currency,
		arg.UpdatedAt,
	)
	return err
}

const listAccounts = `
SELECT id, name, display_name, type, subtype, mask, institution_name, status, balance, currency, updated_at
FROM accounts
ORDER BY id
`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.DisplayName,
			&i.Type,
			&i.Subtype,
			&i.Mask,
			&i.InstitutionName,
			&i.Status,
			&i.Balance,
			&i.Currency,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
