package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"getricher/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "getricher.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func int64Ptr(v int64) *int64 { return &v }

func TestSnapshotRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	txs := []core.Transaction{
		{
			ID: 3, Date: "2025-02-10", Payee: "Grocer", Amount: "12.3400", Currency: "usd", ToBase: 12.34,
			Category: &core.CategoryRef{ID: 7, Name: "Food", GroupID: int64Ptr(2)},
			Tags:     []core.Tag{{ID: int64Ptr(1), Name: "weekly"}, {Name: "untracked"}},
		},
		{ID: 1, Date: "2025-02-10", Payee: "Cafe", Amount: "4.50", Currency: "usd", ToBase: 4.5},
		{ID: 2, Date: "2025-02-01", Payee: "Employer", Amount: "-3250.00", Currency: "usd", ToBase: -3250, IsIncome: true},
	}

	if err := repo.SaveTransactionSnapshot(ctx, "k1", txs, true); err != nil {
		t.Fatalf("SaveTransactionSnapshot() error = %v", err)
	}

	snap, err := repo.LoadTransactionSnapshot(ctx, "k1")
	if err != nil {
		t.Fatalf("LoadTransactionSnapshot() error = %v", err)
	}
	if snap.Key != "k1" || !snap.HasMore || !snap.FetchedAt.Equal(fixed) {
		t.Fatalf("unexpected snapshot metadata %+v", snap)
	}
	if len(snap.Transactions) != len(txs) {
		t.Fatalf("expected %d transactions, got %d", len(txs), len(snap.Transactions))
	}
	for i := range txs {
		if snap.Transactions[i].ID != txs[i].ID {
			t.Fatalf("order not preserved at %d: got id %d", i, snap.Transactions[i].ID)
		}
	}
	first := snap.Transactions[0]
	if first.Category == nil || first.Category.Name != "Food" || *first.Category.GroupID != 2 {
		t.Fatalf("category not restored: %+v", first.Category)
	}
	if len(first.Tags) != 2 || first.Tags[1].ID != nil {
		t.Fatalf("tags not restored: %+v", first.Tags)
	}
	if !snap.Transactions[2].IsIncome || snap.Transactions[2].Amount != "-3250.00" {
		t.Fatalf("income row not restored: %+v", snap.Transactions[2])
	}
}

func TestSnapshotIsReplaced(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	old := []core.Transaction{{ID: 1, Date: "2025-01-01"}, {ID: 2, Date: "2025-01-02"}, {ID: 3, Date: "2025-01-03"}}
	if err := repo.SaveTransactionSnapshot(ctx, "k", old, true); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveTransactionSnapshot(ctx, "k", []core.Transaction{{ID: 9, Date: "2025-02-01"}}, false); err != nil {
		t.Fatal(err)
	}

	snap, err := repo.LoadTransactionSnapshot(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if snap.HasMore || len(snap.Transactions) != 1 || snap.Transactions[0].ID != 9 {
		t.Fatalf("snapshot was not replaced: %+v", snap)
	}
}

func TestSnapshotsAreKeyed(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveTransactionSnapshot(ctx, "a", []core.Transaction{{ID: 1}}, false); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveTransactionSnapshot(ctx, "b", nil, false); err != nil {
		t.Fatal(err)
	}

	a, err := repo.LoadTransactionSnapshot(ctx, "a")
	if err != nil || len(a.Transactions) != 1 {
		t.Fatalf("snapshot a: %+v, %v", a, err)
	}
	b, err := repo.LoadTransactionSnapshot(ctx, "b")
	if err != nil || len(b.Transactions) != 0 {
		t.Fatalf("empty snapshot b should load: %+v, %v", b, err)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	repo := newTestRepository(t)
	if _, err := repo.LoadTransactionSnapshot(context.Background(), "missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestAccountsAreReplacedAndSorted(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := []core.Account{
		{ID: 1, Name: "chk", DisplayName: "Checking", Balance: "10.00", Currency: "usd"},
		{ID: 2, Name: "old", DisplayName: "Old Card"},
	}
	if err := repo.SaveAccounts(ctx, first); err != nil {
		t.Fatalf("SaveAccounts() error = %v", err)
	}

	second := []core.Account{
		{ID: 3, Name: "sav", DisplayName: "Savings", Balance: "1500.25", Currency: "usd"},
		{ID: 1, Name: "chk", DisplayName: "Checking", Balance: "42.00", Currency: "usd"},
	}
	if err := repo.SaveAccounts(ctx, second); err != nil {
		t.Fatalf("SaveAccounts() error = %v", err)
	}

	got, err := repo.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(got))
	}
	if got[0].DisplayName != "Checking" || got[1].DisplayName != "Savings" {
		t.Fatalf("accounts not sorted by display name: %+v", got)
	}
	if got[0].Balance != "42.00" {
		t.Fatalf("expected updated balance, got %q", got[0].Balance)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}
