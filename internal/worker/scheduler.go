package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"getricher/internal/core"
	"getricher/internal/log"
)

// SchedulerConfig holds configuration for the periodic refresher
type SchedulerConfig struct {
	// Interval between refreshes (default: 15m)
	Interval time.Duration

	// Filter is the date range refreshed on every tick (default: month)
	Filter core.DateFilter

	// AccountID restricts the refresh to one account; nil means all accounts
	AccountID *int64
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval: 15 * time.Minute,
		Filter:   core.FilterMonth,
	}
}

// Refresher is satisfied by RefreshWorker.
type Refresher interface {
	Refresh(ctx context.Context, q core.TransactionQuery) (RefreshResult, error)
}

// Scheduler refreshes the configured filter on a fixed interval.
type Scheduler struct {
	refresher Refresher
	config    SchedulerConfig
	now       func() time.Time
	logger    *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(refresher Refresher, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.Filter == "" {
		config.Filter = DefaultSchedulerConfig().Filter
	}
	return &Scheduler{
		refresher: refresher,
		config:    config,
		now:       time.Now,
		logger:    log.ForComponent(log.ComponentWorker),
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Scheduler started",
		"interval", s.config.Interval,
		"filter", string(s.config.Filter))
	return nil
}

// Stop signals the loop and waits for the current refresh to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the loop is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed when the loop exits. It is nil before Start.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

func (s *Scheduler) runLoop(ctx context.Context) {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()
	defer close(doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Refresh immediately on startup
	s.tick(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	q := s.config.Filter.Query(s.config.AccountID, s.now())
	if _, err := s.refresher.Refresh(ctx, q); err != nil {
		s.logger.ErrorContext(ctx, "Scheduled refresh failed",
			log.FieldQueryKey, q.Key(),
			log.FieldError, err)
	}
}
