package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"getricher/internal/core"
)

type Config struct {
	// HTTP Server
	Port         string
	APIRateLimit float64
	APIRateBurst int

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend string

	// Lunch Money
	LunchMoneyBaseURL   string
	LunchMoneyAPIToken  string
	LunchMoneyTokenFile string
	LunchMoneyRateLimit float64
	LunchMoneyRateBurst int
	LunchMoneyTimeout   time.Duration

	// Pagination
	PageSize          int
	DefaultDateFilter string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncInterval time.Duration
	SyncMaxPages int
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		APIRateLimit: getEnvFloat("API_RATE_LIMIT", 10),
		APIRateBurst: getEnvInt("API_RATE_BURST", 30),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend: getEnv("DATA_BACKEND", "demo"),

		LunchMoneyBaseURL:   getEnv("LUNCHMONEY_BASE_URL", "https://dev.lunchmoney.app/v1"),
		LunchMoneyAPIToken:  getEnv("LUNCHMONEY_API_TOKEN", ""),
		LunchMoneyTokenFile: getEnv("LUNCHMONEY_TOKEN_FILE", "./data/lunchmoney.token"),
		LunchMoneyRateLimit: getEnvFloat("LUNCHMONEY_RATE_LIMIT", 2),
		LunchMoneyRateBurst: getEnvInt("LUNCHMONEY_RATE_BURST", 4),
		LunchMoneyTimeout:   getEnvDuration("LUNCHMONEY_TIMEOUT", 30*time.Second),

		PageSize:          getEnvInt("PAGE_SIZE", 200),
		DefaultDateFilter: getEnv("DEFAULT_DATE_FILTER", "month"),

		SQLiteDBPath: os.Getenv("SQLITE_DB_PATH"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "getricher"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_transactions"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Vendors"),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 15*time.Minute),
		SyncMaxPages: getEnvInt("SYNC_MAX_PAGES", 50),
	}

	return cfg
}

// DateFilter returns the parsed default date filter, falling back to month.
func (c *Config) DateFilter() core.DateFilter {
	f, err := core.ParseDateFilter(c.DefaultDateFilter)
	if err != nil {
		return core.FilterMonth
	}
	return f
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIRateLimit <= 0 {
		errors = append(errors, fmt.Sprintf("invalid API rate limit %v: must be positive", c.APIRateLimit))
	}
	if c.APIRateBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid API rate burst %d: must be at least 1", c.APIRateBurst))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	validBackends := []string{"lunchmoney", "demo"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "lunchmoney" {
		if parsedURL, err := url.Parse(c.LunchMoneyBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Lunch Money base URL '%s': %v", c.LunchMoneyBaseURL, err))
		} else if (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid Lunch Money base URL '%s': must be an absolute http(s) URL", c.LunchMoneyBaseURL))
		}
		if c.LunchMoneyRateLimit <= 0 {
			errors = append(errors, fmt.Sprintf("invalid Lunch Money rate limit %v: must be positive", c.LunchMoneyRateLimit))
		}
		if c.LunchMoneyRateBurst < 1 {
			errors = append(errors, fmt.Sprintf("invalid Lunch Money rate burst %d: must be at least 1", c.LunchMoneyRateBurst))
		}
		if c.LunchMoneyTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid Lunch Money timeout %v: must be at least 1 second", c.LunchMoneyTimeout))
		}
	}

	if c.PageSize < 1 || c.PageSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 1 and 1000", c.PageSize))
	}

	if _, err := core.ParseDateFilter(c.DefaultDateFilter); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default date filter '%s': must be one of %v", c.DefaultDateFilter, core.DateFilters()))
	}

	// Check if the SQLite directory exists or can be created
	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is provided")
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if c.SyncMaxPages < 0 {
		errors = append(errors, fmt.Sprintf("invalid sync max pages %d: must not be negative", c.SyncMaxPages))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
