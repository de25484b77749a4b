package backend

import (
	"fmt"
	"time"

	"getricher/internal/config"
)

const (
	defaultDemoCacheSize     = 16
	defaultDemoCacheTTL      = time.Hour
	defaultDemoCleanupPeriod = 10 * time.Minute
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		// Lunch Money configuration
		BaseURL:   appConfig.LunchMoneyBaseURL,
		APIToken:  appConfig.LunchMoneyAPIToken,
		TokenFile: appConfig.LunchMoneyTokenFile,
		RateLimit: appConfig.LunchMoneyRateLimit,
		RateBurst: appConfig.LunchMoneyRateBurst,
		Timeout:   appConfig.LunchMoneyTimeout,

		// Demo data is regenerated at most once per day and account
		DemoCacheSize:     defaultDemoCacheSize,
		DemoCacheTTL:      defaultDemoCacheTTL,
		DemoCleanupPeriod: defaultDemoCleanupPeriod,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case LunchMoneyBackend:
		if c.TokenFile == "" {
			return fmt.Errorf("token file path is required for lunchmoney backend")
		}
		if c.RateLimit < 0 {
			return fmt.Errorf("rate limit must not be negative")
		}

	case DemoBackend:
		if c.DemoCacheSize < 0 {
			return fmt.Errorf("demo cache size must not be negative")
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{LunchMoneyBackend, DemoBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
