package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"getricher/internal/amqp"
	"getricher/internal/budget"
	"getricher/internal/budget/memory"
	"getricher/internal/cache"
	"getricher/internal/core"
	"getricher/internal/secrets"
	"getricher/internal/services"
	sheetsmem "getricher/internal/sheets/memory"
)

var fixedNow = time.Date(2025, 3, 19, 9, 0, 0, 0, time.UTC)

type savedSnapshot struct {
	key     string
	count   int
	hasMore bool
}

type recordingSnapshots struct {
	mu    sync.Mutex
	saved []savedSnapshot
	err   error
}

func (r *recordingSnapshots) SaveTransactionSnapshot(_ context.Context, key string, txs []core.Transaction, hasMore bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, savedSnapshot{key: key, count: len(txs), hasMore: hasMore})
	return nil
}

func newDemoAPI() *memory.Client {
	return memory.New(cache.NewLRUCache[[]core.Transaction](8, time.Hour),
		memory.WithClock(func() time.Time { return fixedNow }))
}

func demoTotal(t *testing.T, api *memory.Client, q core.TransactionQuery) int {
	t.Helper()
	txs, err := api.FetchTransactions(context.Background(), memory.DemoToken, budget.TransactionRequest{
		AccountID: q.AccountID, StartDate: q.Start, EndDate: q.End, Limit: 100000,
	})
	if err != nil {
		t.Fatal(err)
	}
	return len(txs)
}

func TestRefreshDrainsAllPages(t *testing.T) {
	api := newDemoAPI()
	fetcher := services.NewTransactionService(api, secrets.Static(memory.DemoToken))
	snapshots := &recordingSnapshots{}
	reports := sheetsmem.New()

	w := NewRefreshWorker(fetcher,
		WithPageSize(10),
		WithSnapshots(snapshots),
		WithReports(reports),
		WithClock(func() time.Time { return fixedNow }))

	q := core.FilterAll.Query(nil, fixedNow)
	total := demoTotal(t, api, q)
	if total == 0 {
		t.Fatal("demo data should not be empty")
	}

	res, err := w.Refresh(context.Background(), q)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Count != total || res.HasMore {
		t.Fatalf("expected %d transactions without more, got %d hasMore=%v", total, res.Count, res.HasMore)
	}
	if want := total/10 + 1; res.Pages != want {
		t.Fatalf("expected %d pages, got %d", want, res.Pages)
	}

	if len(snapshots.saved) != 1 || snapshots.saved[0].key != q.Key() || snapshots.saved[0].count != total || snapshots.saved[0].hasMore {
		t.Fatalf("unexpected snapshot %+v", snapshots.saved)
	}

	stored := reports.Reports()
	if len(stored) != 1 || res.ReportRef != "mem:1" {
		t.Fatalf("expected one exported report, got %d (ref %q)", len(stored), res.ReportRef)
	}
	if len(stored[0].Vendors) != len(res.Vendors) || stored[0].Currency != "USD" || !stored[0].GeneratedAt.Equal(fixedNow) {
		t.Fatalf("unexpected report %+v", stored[0])
	}
	for _, v := range res.Vendors {
		if v.Vendor == "Employer - Direct Deposit" {
			t.Fatalf("income must not appear in the vendor breakdown")
		}
	}
}

func TestRefreshStopsAtPageCap(t *testing.T) {
	api := newDemoAPI()
	fetcher := services.NewTransactionService(api, secrets.Static(memory.DemoToken))
	snapshots := &recordingSnapshots{}

	w := NewRefreshWorker(fetcher, WithPageSize(5), WithMaxPages(2), WithSnapshots(snapshots))

	res, err := w.Refresh(context.Background(), core.FilterAll.Query(nil, fixedNow))
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Pages != 2 || res.Count != 10 || !res.HasMore {
		t.Fatalf("expected 2 pages of 5 with more, got pages=%d count=%d hasMore=%v", res.Pages, res.Count, res.HasMore)
	}
	if !snapshots.saved[0].hasMore {
		t.Fatalf("truncated snapshot must keep hasMore")
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	fetcher := services.NewTransactionService(newDemoAPI(), secrets.Static(""))
	snapshots := &recordingSnapshots{}
	w := NewRefreshWorker(fetcher, WithSnapshots(snapshots))

	_, err := w.Refresh(context.Background(), core.FilterMonth.Query(nil, fixedNow))
	if !errors.Is(err, budget.ErrNoAPIToken) {
		t.Fatalf("expected ErrNoAPIToken, got %v", err)
	}
	if len(snapshots.saved) != 0 {
		t.Fatalf("failed refresh must not store a snapshot")
	}
}

func TestRefreshSnapshotFailure(t *testing.T) {
	fetcher := services.NewTransactionService(newDemoAPI(), secrets.Static(memory.DemoToken))
	boom := errors.New("disk full")
	reports := sheetsmem.New()
	w := NewRefreshWorker(fetcher, WithSnapshots(&recordingSnapshots{err: boom}), WithReports(reports))

	if _, err := w.Refresh(context.Background(), core.FilterMonth.Query(nil, fixedNow)); !errors.Is(err, boom) {
		t.Fatalf("expected snapshot error, got %v", err)
	}
	if len(reports.Reports()) != 0 {
		t.Fatalf("report must not be exported after a failed snapshot")
	}
}

func TestRefreshRejectsInvalidQuery(t *testing.T) {
	w := NewRefreshWorker(services.NewTransactionService(newDemoAPI(), secrets.Static(memory.DemoToken)))
	q := core.TransactionQuery{Start: fixedNow, End: fixedNow.AddDate(0, 0, -1)}
	if _, err := w.Refresh(context.Background(), q); !errors.Is(err, core.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestHandleRefreshMessage(t *testing.T) {
	reports := sheetsmem.New()
	w := NewRefreshWorker(
		services.NewTransactionService(newDemoAPI(), secrets.Static(memory.DemoToken)),
		WithReports(reports),
		WithClock(func() time.Time { return fixedNow }))

	if err := w.HandleRefreshMessage(context.Background(), &amqp.RefreshRequestMessage{RequestID: "bad", Filter: "decade"}); err != nil {
		t.Fatalf("invalid requests should be dropped, got %v", err)
	}
	if len(reports.Reports()) != 0 {
		t.Fatalf("invalid request must not refresh")
	}

	msg := amqp.NewFilterRefreshMessage(nil, core.FilterMonth)
	if err := w.HandleRefreshMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleRefreshMessage() error = %v", err)
	}
	got := reports.Reports()
	if len(got) != 1 || got[0].Query.Start.Format(core.DateLayout) != "2025-03-01" {
		t.Fatalf("expected a month report, got %+v", got)
	}
}

func TestHandleRefreshMessageReturnsRefreshErrors(t *testing.T) {
	w := NewRefreshWorker(services.NewTransactionService(newDemoAPI(), secrets.Static("")))
	err := w.HandleRefreshMessage(context.Background(), amqp.NewFilterRefreshMessage(nil, core.FilterWeek))
	if !errors.Is(err, budget.ErrNoAPIToken) {
		t.Fatalf("expected ErrNoAPIToken, got %v", err)
	}
}
