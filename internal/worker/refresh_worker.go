package worker

import (
	"context"
	"fmt"
	"time"

	"getricher/internal/amqp"
	"getricher/internal/core"
	"getricher/internal/log"
	"getricher/internal/pagination"
	"getricher/internal/sheets"
)

// SnapshotSaver stores the accumulated result of a refresh.
type SnapshotSaver interface {
	SaveTransactionSnapshot(ctx context.Context, key string, txs []core.Transaction, hasMore bool) error
}

// RefreshResult summarises one completed refresh.
type RefreshResult struct {
	Query     core.TransactionQuery
	Count     int
	Pages     int
	HasMore   bool
	Vendors   []core.VendorSpending
	ReportRef string
	Duration  time.Duration
}

// RefreshWorker drives a fresh pagination session to exhaustion, stores the
// snapshot and exports the vendor breakdown.
type RefreshWorker struct {
	fetcher   pagination.Fetcher
	snapshots SnapshotSaver
	reports   sheets.VendorReportWriter
	pageSize  int
	maxPages  int
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*RefreshWorker)

// WithSnapshots stores every refresh result. Nil disables snapshots.
func WithSnapshots(s SnapshotSaver) Option {
	return func(w *RefreshWorker) { w.snapshots = s }
}

// WithReports exports a vendor report after every refresh. Nil disables export.
func WithReports(r sheets.VendorReportWriter) Option {
	return func(w *RefreshWorker) { w.reports = r }
}

func WithPageSize(n int) Option {
	return func(w *RefreshWorker) { w.pageSize = n }
}

// WithMaxPages caps the pages requested per refresh; zero means no cap.
func WithMaxPages(n int) Option {
	return func(w *RefreshWorker) { w.maxPages = n }
}

func WithClock(now func() time.Time) Option {
	return func(w *RefreshWorker) { w.now = now }
}

func NewRefreshWorker(fetcher pagination.Fetcher, opts ...Option) *RefreshWorker {
	w := &RefreshWorker{
		fetcher:  fetcher,
		pageSize: pagination.DefaultPageSize,
		now:      time.Now,
		logger:   log.ForComponent(log.ComponentWorker),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Refresh loads every page of q, or at most the configured page cap.
func (w *RefreshWorker) Refresh(ctx context.Context, q core.TransactionQuery) (RefreshResult, error) {
	if err := q.Validate(); err != nil {
		return RefreshResult{}, fmt.Errorf("invalid query: %w", err)
	}

	started := w.now()
	logger := w.logger.With(log.FieldQueryKey, q.Key(), log.FieldOperation, log.OpRefresh)
	engine := pagination.New(w.fetcher,
		pagination.WithPageSize(w.pageSize),
		pagination.WithLogger(logger.WithComponent(log.ComponentPagination)))

	engine.FetchTransactions(ctx, q)
	engine.Wait()
	pages := 1

	for {
		s := engine.State()
		if s.Phase() == pagination.PhaseError {
			return RefreshResult{}, fmt.Errorf("refresh %s page %d: %s: %w", q.Key(), pages, s.ErrorMessage(), s.Err())
		}
		if !s.HasMore() {
			break
		}
		if w.maxPages > 0 && pages >= w.maxPages {
			logger.WarnContext(ctx, "Refresh stopped at page cap",
				log.FieldPageCount, pages,
				log.FieldTotal, s.Count())
			break
		}
		if err := ctx.Err(); err != nil {
			return RefreshResult{}, fmt.Errorf("refresh %s cancelled after %d pages: %w", q.Key(), pages, err)
		}
		if !engine.LoadMore(ctx, q) {
			break
		}
		engine.Wait()
		pages++
	}

	final := engine.State()
	txs := final.Transactions()
	result := RefreshResult{
		Query:   q,
		Count:   len(txs),
		Pages:   pages,
		HasMore: final.HasMore(),
		Vendors: core.AggregateVendorSpending(txs),
	}

	if w.snapshots != nil {
		if err := w.snapshots.SaveTransactionSnapshot(ctx, q.Key(), txs, result.HasMore); err != nil {
			return RefreshResult{}, fmt.Errorf("save snapshot: %w", err)
		}
	}

	if w.reports != nil {
		report := core.VendorReport{
			Query:       q,
			GeneratedAt: w.now(),
			Currency:    core.SpendingCurrency(txs),
			Vendors:     result.Vendors,
		}
		ref, err := w.reports.WriteVendorReport(ctx, report)
		if err != nil {
			return RefreshResult{}, fmt.Errorf("export vendor report: %w", err)
		}
		result.ReportRef = ref
	}

	result.Duration = w.now().Sub(started)
	logger.InfoContext(ctx, "Refresh completed",
		log.FieldTotal, result.Count,
		log.FieldPageCount, result.Pages,
		log.FieldHasMore, result.HasMore,
		log.FieldVendorCount, len(result.Vendors),
		log.FieldReportRef, result.ReportRef,
		log.FieldDuration, result.Duration.Milliseconds())

	return result, nil
}

// HandleRefreshMessage resolves a refresh request against the worker clock
// and runs it. Requests that can never resolve are logged and dropped.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshRequestMessage) error {
	q, err := msg.Query(w.now())
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping invalid refresh request",
			log.FieldRequestID, msg.RequestID,
			log.FieldError, err)
		return nil
	}

	if _, err := w.Refresh(ctx, q); err != nil {
		return fmt.Errorf("refresh request %s: %w", msg.RequestID, err)
	}
	return nil
}
