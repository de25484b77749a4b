package memory

import (
	"context"
	"testing"
	"time"

	"getricher/internal/budget"
	"getricher/internal/cache"
	"getricher/internal/core"
)

var refDate = time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)

type countingCache struct {
	items map[string][]core.Transaction
	gets  int
	hits  int
	sets  int
}

func newCountingCache() *countingCache {
	return &countingCache{items: map[string][]core.Transaction{}}
}

func (c *countingCache) Get(key string) ([]core.Transaction, bool) {
	c.gets++
	v, ok := c.items[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *countingCache) Set(key string, v []core.Transaction) { c.sets++; c.items[key] = v }
func (c *countingCache) Delete(key string)                    { delete(c.items, key) }
func (c *countingCache) Size() int                            { return len(c.items) }

func fullRange() budget.TransactionRequest {
	return budget.TransactionRequest{
		StartDate: refDate.AddDate(-2, 0, 0),
		EndDate:   refDate,
		Limit:     1000,
	}
}

func fetchAll(t *testing.T, c *Client, req budget.TransactionRequest, pageSize int) []core.Transaction {
	t.Helper()
	var all []core.Transaction
	req.Limit = pageSize
	for req.Offset = 0; ; req.Offset += pageSize {
		page, err := c.FetchTransactions(context.Background(), DemoToken, req)
		if err != nil {
			t.Fatalf("FetchTransactions offset %d: %v", req.Offset, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all
		}
	}
}

func TestDemoPagingCoversHistoryOnce(t *testing.T) {
	c := New(cache.NewLRUCache[[]core.Transaction](8, time.Hour), WithClock(func() time.Time { return refDate }))

	whole, err := c.FetchTransactions(context.Background(), DemoToken, fullRange())
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
	if len(whole) < 20 {
		t.Fatalf("expected a meaningful demo history, got %d transactions", len(whole))
	}

	paged := fetchAll(t, c, fullRange(), 7)
	if len(paged) != len(whole) {
		t.Fatalf("paging returned %d transactions, want %d", len(paged), len(whole))
	}
	seen := map[int64]bool{}
	for i, tx := range paged {
		if seen[tx.ID] {
			t.Fatalf("duplicate id %d", tx.ID)
		}
		seen[tx.ID] = true
		if tx.ID != whole[i].ID {
			t.Fatalf("page order differs at %d", i)
		}
	}
}

func TestDemoIsDeterministic(t *testing.T) {
	clock := WithClock(func() time.Time { return refDate })
	a, _ := New(cache.NewLRUCache[[]core.Transaction](8, time.Hour), clock).FetchTransactions(context.Background(), DemoToken, fullRange())
	b, _ := New(cache.NewLRUCache[[]core.Transaction](8, time.Hour), clock).FetchTransactions(context.Background(), DemoToken, fullRange())

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Amount != b[i].Amount || a[i].Payee != b[i].Payee {
			t.Fatalf("transaction %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestDemoAccountAndDateFilters(t *testing.T) {
	c := New(cache.NewLRUCache[[]core.Transaction](8, time.Hour), WithClock(func() time.Time { return refDate }))

	checking := int64(1)
	req := fullRange()
	req.AccountID = &checking
	txs, err := c.FetchTransactions(context.Background(), DemoToken, req)
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
	var income int
	for _, tx := range txs {
		if tx.LinkedAccount == nil || tx.LinkedAccount.ID != 1 {
			t.Fatalf("transaction %d not on account 1", tx.ID)
		}
		if tx.IsIncome {
			income++
		}
	}
	if income == 0 {
		t.Fatalf("expected paychecks on the checking account")
	}

	savings := int64(3)
	req.AccountID = &savings
	txs, _ = c.FetchTransactions(context.Background(), DemoToken, req)
	if len(txs) != 0 {
		t.Fatalf("expected no activity on savings, got %d", len(txs))
	}

	month := fullRange()
	month.StartDate = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	txs, _ = c.FetchTransactions(context.Background(), DemoToken, month)
	for _, tx := range txs {
		if tx.Date < "2026-02-01" || tx.Date > "2026-02-15" {
			t.Fatalf("transaction dated %s outside range", tx.Date)
		}
	}
}

func TestDemoUsesInjectedCache(t *testing.T) {
	store := newCountingCache()
	c := New(store, WithClock(func() time.Time { return refDate }))

	for i := 0; i < 3; i++ {
		if _, err := c.FetchTransactions(context.Background(), DemoToken, fullRange()); err != nil {
			t.Fatalf("FetchTransactions: %v", err)
		}
	}
	if store.sets != 1 || store.hits != 2 {
		t.Fatalf("expected 1 set and 2 hits, got sets=%d hits=%d", store.sets, store.hits)
	}

	one := int64(2)
	req := fullRange()
	req.AccountID = &one
	_, _ = c.FetchTransactions(context.Background(), DemoToken, req)
	if store.Size() != 2 {
		t.Fatalf("expected per-account cache entries, got %d", store.Size())
	}
}

func TestDemoPageBounds(t *testing.T) {
	c := New(newCountingCache(), WithClock(func() time.Time { return refDate }))
	req := fullRange()
	req.Offset = 100000
	req.Limit = 10
	txs, err := c.FetchTransactions(context.Background(), DemoToken, req)
	if err != nil || len(txs) != 0 {
		t.Fatalf("expected empty page past the end, got %d (%v)", len(txs), err)
	}
}

func TestDemoAccounts(t *testing.T) {
	c := New(newCountingCache())
	got, err := c.FetchAccounts(context.Background(), DemoToken)
	if err != nil {
		t.Fatalf("FetchAccounts: %v", err)
	}
	if len(got) != 3 || got[0].DisplayName != "Chase Checking" || got[2].Balance != "12450.00" {
		t.Fatalf("unexpected accounts %+v", got)
	}

	got[0].DisplayName = "mutated"
	again, _ := c.FetchAccounts(context.Background(), DemoToken)
	if again[0].DisplayName != "Chase Checking" {
		t.Fatalf("accounts must be returned as a copy")
	}
}

func TestDemoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(newCountingCache()).FetchTransactions(ctx, DemoToken, fullRange()); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
