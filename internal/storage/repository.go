package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"getricher/internal/core"

	_ "modernc.org/sqlite"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the last stored result set of one transaction query.
type Snapshot struct {
	Key          string
	Transactions []core.Transaction
	HasMore      bool
	FetchedAt    time.Time
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveTransactionSnapshot replaces the snapshot stored under key. Rows keep
// the given order.
func (r *SQLiteRepository) SaveTransactionSnapshot(ctx context.Context, key string, txs []core.Transaction, hasMore bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteSnapshotTransactions(ctx, key); err != nil {
		return fmt.Errorf("delete snapshot rows: %w", err)
	}

	for i, t := range txs {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode transaction %d: %w", t.ID, err)
		}
		err = q.InsertSnapshotTransaction(ctx, InsertSnapshotTransactionParams{
			QueryKey:      key,
			Position:      int64(i),
			TransactionID: t.ID,
			Date:          t.Date,
			Payee:         t.Payee,
			Amount:        t.Amount,
			Currency:      t.Currency,
			ToBase:        t.ToBase,
			IsIncome:      t.IsIncome,
			Payload:       string(payload),
		})
		if err != nil {
			return fmt.Errorf("insert snapshot row %d: %w", i, err)
		}
	}

	err = q.UpsertTransactionSnapshot(ctx, UpsertTransactionSnapshotParams{
		QueryKey:         key,
		HasMore:          hasMore,
		TransactionCount: int64(len(txs)),
		FetchedAt:        r.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Transaction snapshot saved",
		"query_key", key,
		"count", len(txs),
		"has_more", hasMore)
	return nil
}

// LoadTransactionSnapshot returns the snapshot stored under key or
// ErrSnapshotNotFound.
func (r *SQLiteRepository) LoadTransactionSnapshot(ctx context.Context, key string) (Snapshot, error) {
	meta, err := r.queries.GetTransactionSnapshot(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	rows, err := r.queries.ListSnapshotTransactions(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list snapshot rows: %w", err)
	}

	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		var t core.Transaction
		if err := json.Unmarshal([]byte(row.Payload), &t); err != nil {
			return Snapshot{}, fmt.Errorf("decode snapshot row %d: %w", row.Position, err)
		}
		txs = append(txs, t)
	}

	fetchedAt, err := time.Parse(time.RFC3339Nano, meta.FetchedAt)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot has malformed fetch time", "query_key", key, "fetched_at", meta.FetchedAt)
	}

	return Snapshot{
		Key:          meta.QueryKey,
		Transactions: txs,
		HasMore:      meta.HasMore,
		FetchedAt:    fetchedAt,
	}, nil
}

// SaveAccounts replaces the stored accounts.
func (r *SQLiteRepository) SaveAccounts(ctx context.Context, accounts []core.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAccounts(ctx); err != nil {
		return fmt.Errorf("delete accounts: %w", err)
	}

	updatedAt := r.now().UTC().Format(time.RFC3339Nano)
	for _, a := range accounts {
		err := q.InsertAccount(ctx, InsertAccountParams{
			ID:              a.ID,
			Name:            a.Name,
			DisplayName:     a.DisplayName,
			Type:            a.Type,
			Subtype:         a.Subtype,
			Mask:            a.Mask,
			InstitutionName: a.InstitutionName,
			Status:          a.Status,
			Balance:         a.Balance,
			Currency:        a.Currency,
			UpdatedAt:       updatedAt,
		})
		if err != nil {
			return fmt.Errorf("insert account %d: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}

	slog.InfoContext(ctx, "Accounts saved to SQLite", "count", len(accounts))
	return nil
}

// ListAccounts returns the stored accounts sorted by display name.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]core.Account, len(rows))
	for i, a := range rows {
		accounts[i] = core.Account{
			ID:              a.ID,
			Name:            a.Name,
			DisplayName:     a.DisplayName,
			Type:            a.Type,
			Subtype:         a.Subtype,
			Mask:            a.Mask,
			InstitutionName: a.InstitutionName,
			Status:          a.Status,
			Balance:         a.Balance,
			Currency:        a.Currency,
		}
	}
	core.SortAccountsByDisplayName(accounts)

	return accounts, nil
}
