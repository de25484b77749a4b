package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"getricher/internal/budget/lunchmoney"
	"getricher/internal/budget/memory"
	"getricher/internal/cache"
	"getricher/internal/core"
	"getricher/internal/secrets"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case LunchMoneyBackend:
		return f.createLunchMoneyBackend(ctx, config)
	case DemoBackend:
		return f.createDemoBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createLunchMoneyBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := lunchmoney.New(config.BaseURL,
		lunchmoney.WithRateLimit(config.RateLimit, config.RateBurst),
		lunchmoney.WithTimeout(config.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Lunch Money client: %w", err)
	}

	// The configured token wins over the one saved on disk
	file := secrets.NewFileStore(config.TokenFile)
	tokens := secrets.Chain{secrets.Static(strings.TrimSpace(config.APIToken)), file}

	_, hasToken := tokens.GetToken()
	f.logger.InfoContext(ctx, "Initialized Lunch Money backend",
		"base_url", config.BaseURL,
		"token_file", file.Path(),
		"token_configured", hasToken,
		"rate_limit", config.RateLimit)

	return &BackendResult{
		API:       client,
		Tokens:    tokens,
		TokenFile: file,
		Cleanup:   nil, // No cleanup needed, idle connections close with the process
	}, nil
}

func (f *DefaultFactory) createDemoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	size := config.DemoCacheSize
	if size == 0 {
		size = defaultDemoCacheSize
	}
	ttl := config.DemoCacheTTL
	if ttl <= 0 {
		ttl = defaultDemoCacheTTL
	}
	period := config.DemoCleanupPeriod
	if period <= 0 {
		period = defaultDemoCleanupPeriod
	}

	store := cache.NewLRUCache[[]core.Transaction](size, ttl)
	manager := cache.NewManager(f.logger)
	manager.Register("demo_transactions", store)
	manager.StartCleanup(period)

	f.logger.InfoContext(ctx, "Initialized demo backend",
		"cache_size", size,
		"cache_ttl", ttl)

	return &BackendResult{
		API:    memory.New(store),
		Tokens: secrets.Static(memory.DemoToken),
		Cleanup: func() error {
			manager.Stop()
			return nil
		},
	}, nil
}
