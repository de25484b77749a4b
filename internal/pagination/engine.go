// Package pagination accumulates pages of transactions into a single,
// date-sorted collection and tracks whether more pages remain.
//
// Commands return as soon as the state has moved to a loading phase; the page
// request runs in its own goroutine. Every fresh fetch starts a new
// generation and only completions of the current generation are applied, so a
// slow response from an abandoned fetch can never overwrite newer results.
package pagination

import (
	"context"
	"sync"

	"getricher/internal/budget"
	"getricher/internal/core"
	"getricher/internal/log"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 200

// Fetcher loads one page of transactions.
type Fetcher interface {
	FetchPage(ctx context.Context, q core.TransactionQuery, limit, offset int) ([]core.Transaction, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q core.TransactionQuery, limit, offset int) ([]core.Transaction, error)

func (f FetcherFunc) FetchPage(ctx context.Context, q core.TransactionQuery, limit, offset int) ([]core.Transaction, error) {
	return f(ctx, q, limit, offset)
}

type Engine struct {
	fetcher  Fetcher
	pageSize int
	logger   *log.Logger

	mu          sync.Mutex
	state       State
	query       core.TransactionQuery
	generation  uint64
	subscribers map[int]func(State)
	nextSubID   int
	pending     []State
	delivering  bool

	inflight sync.WaitGroup
}

type Option func(*Engine)

// WithPageSize sets the page size. Values below 1 are ignored.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		pageSize:    DefaultPageSize,
		logger:      log.ForComponent(log.ComponentPagination),
		state:       State{phase: PhaseIdle},
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PageSize returns the configured page size.
func (e *Engine) PageSize() int { return e.pageSize }

// State returns the current snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Query returns the query of the current session.
func (e *Engine) Query() core.TransactionQuery {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Subscribe registers fn for every published state, delivered in transition
// order and outside the engine lock. The returned func unsubscribes.
func (e *Engine) Subscribe(fn func(State)) func() {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subscribers, id)
		e.mu.Unlock()
	}
}

// FetchTransactions discards accumulated results and requests the first page
// of q. It may be issued in any phase; an earlier fetch still in flight is
// superseded.
func (e *Engine) FetchTransactions(ctx context.Context, q core.TransactionQuery) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.query = q
	e.inflight.Add(1)
	e.commitLocked(State{phase: PhaseLoading, query: q, generation: gen})

	e.logger.DebugContext(ctx, "Fresh fetch started",
		log.FieldQueryKey, q.Key(),
		log.FieldGeneration, gen)

	go e.fetch(context.WithoutCancel(ctx), gen, q, nil)
}

// LoadMore requests the page after the accumulated results. It only starts
// from a loaded state with more pages, or to retry a failed load-more, and
// reports whether a request was issued. Calls made while a page is loading
// are ignored.
func (e *Engine) LoadMore(ctx context.Context, q core.TransactionQuery) bool {
	e.mu.Lock()
	if !e.state.canLoadMore() {
		phase := e.state.phase
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "Load more ignored", log.FieldPhase, string(phase))
		return false
	}

	gen := e.generation
	prior := e.state.transactions
	e.query = q
	e.inflight.Add(1)
	e.commitLocked(State{
		phase:        PhaseLoadingMore,
		transactions: prior,
		hasMore:      true,
		query:        q,
		generation:   gen,
	})

	e.logger.DebugContext(ctx, "Load more started",
		log.FieldQueryKey, q.Key(),
		log.FieldOffset, len(prior),
		log.FieldGeneration, gen)

	go e.fetch(context.WithoutCancel(ctx), gen, q, prior)
	return true
}

// Wait blocks until no page request is in flight.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// fetch runs one page request. prior is nil for a fresh fetch.
func (e *Engine) fetch(ctx context.Context, gen uint64, q core.TransactionQuery, prior []core.Transaction) {
	defer e.inflight.Done()

	offset := len(prior)
	page, err := e.fetcher.FetchPage(ctx, q, e.pageSize, offset)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "Discarded stale page",
			log.FieldQueryKey, q.Key(),
			log.FieldGeneration, gen,
			log.FieldOffset, offset)
		return
	}

	if err != nil {
		next := State{
			phase:      PhaseError,
			message:    budget.UserMessage(err),
			err:        err,
			query:      q,
			generation: gen,
		}
		if prior != nil {
			next.transactions = prior
			next.hasMore = true
		}
		e.commitLocked(next)

		e.logger.WarnContext(ctx, "Page request failed",
			log.NewFields().WithPage(q.Key(), offset, e.pageSize).WithError(err).ToSlice()...)
		return
	}

	merged := make([]core.Transaction, 0, len(prior)+len(page))
	merged = append(merged, prior...)
	merged = append(merged, page...)
	core.SortByDateDesc(merged)

	hasMore := len(page) == e.pageSize
	e.commitLocked(State{
		phase:        PhaseLoaded,
		transactions: merged,
		hasMore:      hasMore,
		query:        q,
		generation:   gen,
	})

	e.logger.DebugContext(ctx, "Page loaded",
		log.FieldQueryKey, q.Key(),
		log.FieldOffset, offset,
		log.FieldPageCount, len(page),
		log.FieldTotal, len(merged),
		log.FieldHasMore, hasMore)
}

// commitLocked installs next, releases e.mu and delivers queued states to
// subscribers. Only one goroutine delivers at a time; states committed
// meanwhile (including from inside a subscriber) are queued behind it.
func (e *Engine) commitLocked(next State) {
	e.state = next
	e.pending = append(e.pending, next)
	if e.delivering {
		e.mu.Unlock()
		return
	}
	e.delivering = true

	for len(e.pending) > 0 {
		s := e.pending[0]
		e.pending = e.pending[1:]
		subs := make([]func(State), 0, len(e.subscribers))
		for _, fn := range e.subscribers {
			subs = append(subs, fn)
		}
		e.mu.Unlock()

		for _, fn := range subs {
			fn(s)
		}

		e.mu.Lock()
	}
	e.delivering = false
	e.mu.Unlock()
}
