package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"getricher/internal/amqp"
	"getricher/internal/budget"
	"getricher/internal/core"
	"getricher/internal/log"
	"getricher/internal/middleware/ratelimit"
	"getricher/internal/middleware/security"
	"getricher/internal/middleware/trace"
	"getricher/internal/pagination"
	"getricher/internal/storage"
)

// snapshotTimeout bounds one snapshot write triggered by a loaded page.
const snapshotTimeout = 10 * time.Second

// AccountFetcher lists the budgeting accounts.
type AccountFetcher interface {
	FetchAccounts(ctx context.Context) ([]core.Account, error)
}

// SnapshotStore keeps the last loaded result per query.
type SnapshotStore interface {
	SaveTransactionSnapshot(ctx context.Context, key string, txs []core.Transaction, hasMore bool) error
	LoadTransactionSnapshot(ctx context.Context, key string) (storage.Snapshot, error)
}

// RefreshPublisher hands refresh requests to the background worker.
type RefreshPublisher interface {
	PublishRefreshRequest(ctx context.Context, msg *amqp.RefreshRequestMessage) error
}

// Options wires the server. Snapshots, Publisher and TokenWriter are
// optional; leave them nil to disable the matching endpoints.
type Options struct {
	Addr          string
	Engine        *pagination.Engine
	Accounts      AccountFetcher
	Tokens        budget.TokenStore
	TokenWriter   budget.TokenWriter
	Snapshots     SnapshotStore
	Publisher     RefreshPublisher
	DefaultFilter core.DateFilter
	RateLimit     float64
	RateBurst     int
	Logger        *log.Logger
	Now           func() time.Time
}

type Server struct {
	http.Server
	engine        *pagination.Engine
	accounts      AccountFetcher
	tokens        budget.TokenStore
	tokenWriter   budget.TokenWriter
	snapshots     SnapshotStore
	publisher     RefreshPublisher
	defaultFilter core.DateFilter
	now           func() time.Time
	logger        *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	unsubscribe  func()
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.ForComponent(log.ComponentHTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultFilter == "" {
		opts.DefaultFilter = core.FilterMonth
	}

	detector, _ := security.NewDetector()
	mux := http.NewServeMux()

	s := &Server{
		engine:           opts.Engine,
		accounts:         opts.Accounts,
		tokens:           opts.Tokens,
		tokenWriter:      opts.TokenWriter,
		snapshots:        opts.Snapshots,
		publisher:        opts.Publisher,
		defaultFilter:    opts.DefaultFilter,
		now:              opts.Now,
		logger:           opts.Logger,
		securityDetector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: opts.RateLimit,
			Burst:             opts.RateBurst,
		}),
		started: opts.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(opts.Logger, detector.ClientIP)

	if s.snapshots != nil {
		s.unsubscribe = s.engine.Subscribe(s.storeSnapshot)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/transactions/fetch", s.handleFetch)
	mux.HandleFunc("POST /api/transactions/load-more", s.handleLoadMore)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/transactions/cached", s.handleCachedTransactions)
	mux.HandleFunc("GET /api/vendors", s.handleVendors)
	mux.HandleFunc("GET /api/accounts", s.handleAccounts)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	mux.HandleFunc("GET /api/settings/token", s.handleTokenStatus)
	mux.HandleFunc("PUT /api/settings/token", s.handleSaveToken)
	mux.HandleFunc("DELETE /api/settings/token", s.handleDeleteToken)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ClientIP, isMutating, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ClientIP(r))
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(handler)
	handler = s.flagSuspicious(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func isMutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// flagSuspicious logs requests that look like probes; they are still served.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.Suspicious(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.securityDetector.ClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// storeSnapshot persists every loaded page set. It runs on the engine's
// delivery goroutine.
func (s *Server) storeSnapshot(state pagination.State) {
	if state.Phase() != pagination.PhaseLoaded {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	key := state.Query().Key()
	if err := s.snapshots.SaveTransactionSnapshot(ctx, key, state.Transactions(), state.HasMore()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to store transaction snapshot",
			log.FieldQueryKey, key,
			log.FieldOperation, log.OpSnapshot,
			log.FieldError, err)
	}
}

// Shutdown gracefully shuts down the server and waits for in-flight page
// requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			s.engine.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.WarnContext(ctx, "Shutdown timed out waiting for page requests")
		}

		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})

	return shutdownErr
}
