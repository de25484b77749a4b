package backend

import (
	"context"
	"time"

	"getricher/internal/budget"
	"getricher/internal/secrets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the API, its credential source and an optional cleanup function
type BackendResult struct {
	API    budget.TransactionAPI
	Tokens budget.TokenStore

	// TokenFile is the writable store behind Tokens; nil for the demo backend.
	TokenFile *secrets.FileStore

	Cleanup CleanupFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Lunch Money specific
	BaseURL   string
	APIToken  string
	TokenFile string
	RateLimit float64
	RateBurst int
	Timeout   time.Duration

	// Demo specific
	DemoCacheSize     int
	DemoCacheTTL      time.Duration
	DemoCleanupPeriod time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	LunchMoneyBackend BackendType = "lunchmoney"
	DemoBackend       BackendType = "demo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case LunchMoneyBackend, DemoBackend:
		return true
	default:
		return false
	}
}
