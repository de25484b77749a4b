package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"getricher/internal/budget"
	"getricher/internal/budget/lunchmoney"
	"getricher/internal/budget/memory"
	"getricher/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBackendType_IsValid(t *testing.T) {
	tests := []struct {
		backendType BackendType
		want        bool
	}{
		{LunchMoneyBackend, true},
		{DemoBackend, true},
		{"sqlite", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.backendType), func(t *testing.T) {
			if got := tt.backendType.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{
		DataBackend:         "lunchmoney",
		LunchMoneyBaseURL:   "https://example.test/v1",
		LunchMoneyAPIToken:  "secret",
		LunchMoneyTokenFile: "/tmp/token",
		LunchMoneyRateLimit: 3,
		LunchMoneyRateBurst: 6,
		LunchMoneyTimeout:   5 * time.Second,
	}
	got, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != LunchMoneyBackend || got.BaseURL != app.LunchMoneyBaseURL || got.APIToken != "secret" ||
		got.RateLimit != 3 || got.RateBurst != 6 || got.Timeout != 5*time.Second {
		t.Fatalf("unexpected backend config %+v", got)
	}
	if got.DemoCacheSize != defaultDemoCacheSize {
		t.Fatalf("expected default demo cache size, got %d", got.DemoCacheSize)
	}

	app.DataBackend = "memory"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestCreateDemoBackend(t *testing.T) {
	res, err := NewFactory(discardLogger()).CreateBackend(context.Background(), Config{Type: DemoBackend})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if _, ok := res.API.(*memory.Client); !ok {
		t.Fatalf("expected demo client, got %T", res.API)
	}
	token, ok := res.Tokens.GetToken()
	if !ok || token != memory.DemoToken {
		t.Fatalf("expected demo token, got %q %v", token, ok)
	}
	if res.TokenFile != nil {
		t.Fatal("demo backend has no token file")
	}

	accounts, err := res.API.FetchAccounts(context.Background(), token)
	if err != nil || len(accounts) == 0 {
		t.Fatalf("FetchAccounts() = %d, %v", len(accounts), err)
	}

	if err := res.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestCreateLunchMoneyBackend(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	cfg := Config{
		Type:      LunchMoneyBackend,
		BaseURL:   "https://example.test/v1",
		TokenFile: tokenPath,
		RateLimit: 1,
		RateBurst: 1,
		Timeout:   time.Second,
	}

	res, err := NewFactory(discardLogger()).CreateBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if _, ok := res.API.(*lunchmoney.Client); !ok {
		t.Fatalf("expected lunchmoney client, got %T", res.API)
	}
	if _, ok := res.Tokens.GetToken(); ok {
		t.Fatal("no token should be configured yet")
	}

	if err := res.TokenFile.SaveToken("from-file"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if token, ok := res.Tokens.GetToken(); !ok || token != "from-file" {
		t.Fatalf("expected file token, got %q %v", token, ok)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close() without cleanup should be nil, got %v", err)
	}

	cfg.APIToken = "  from-env "
	res, err = NewFactory(discardLogger()).CreateBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if token, _ := res.Tokens.GetToken(); token != "from-env" {
		t.Fatalf("configured token should win, got %q", token)
	}
}

func TestCreateBackendErrors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"unknown type", Config{Type: "sheets"}, "invalid backend type"},
		{"missing token file", Config{Type: LunchMoneyBackend}, "token file path is required"},
		{"bad base url", Config{Type: LunchMoneyBackend, TokenFile: "t", BaseURL: "://nope"}, budget.ErrInvalidURL.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFactory(nil).CreateBackend(context.Background(), tt.config)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
