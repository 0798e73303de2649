package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"insight_server/core/domain"
	"insight_server/pkg/apperr"
)

// Message providers
const (
	ProviderOutlook = "outlook"
	ProviderGmail   = "gmail"
	ProviderSample  = "sample"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Storage
	RedisURL        string
	SnapshotTTLHour int

	// Mailbox
	MailboxID      string
	Provider       string
	Timezone       string
	FetchLimit     int
	SampleFallback bool

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GmailConcurrency   int

	// OAuth - Microsoft
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenantID     string
	MicrosoftRefreshToken string

	// Scheduler
	RefreshIntervalMin int

	// Analysis defaults
	Analysis domain.AnalysisSettings

	// CORS
	AllowedOrigins []string

	location *time.Location
}

func Load() (*Config, error) {
	defaults := domain.DefaultAnalysisSettings()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Storage
		RedisURL:        getEnv("REDIS_URL", ""),
		SnapshotTTLHour: getEnvInt("INSIGHT_SNAPSHOT_TTL_HOUR", 24*7),

		// Mailbox
		MailboxID:      getEnv("MAILBOX_ID", "me"),
		Provider:       strings.ToLower(getEnv("INSIGHT_PROVIDER", ProviderSample)),
		Timezone:       getEnv("INSIGHT_TIMEZONE", "Local"),
		FetchLimit:     getEnvInt("INSIGHT_FETCH_LIMIT", 1000),
		SampleFallback: getEnvBool("INSIGHT_SAMPLE_FALLBACK", false),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GmailConcurrency:   getEnvInt("GMAIL_CONCURRENCY", 10),

		// OAuth - Microsoft
		MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftTenantID:     getEnv("MICROSOFT_TENANT_ID", "common"),
		MicrosoftRefreshToken: getEnv("MICROSOFT_REFRESH_TOKEN", ""),

		// Scheduler
		RefreshIntervalMin: getEnvInt("INSIGHT_REFRESH_INTERVAL_MIN", 60),

		// Analysis defaults
		Analysis: domain.AnalysisSettings{
			AnalysisPeriod: getEnvInt("INSIGHT_ANALYSIS_PERIOD", defaults.AnalysisPeriod),
			FilterSettings: domain.FilterSettings{
				FilterCalendarInvites: getEnvBool("INSIGHT_FILTER_CALENDAR", defaults.FilterCalendarInvites),
				FilterOutOfOffice:     getEnvBool("INSIGHT_FILTER_OUT_OF_OFFICE", defaults.FilterOutOfOffice),
			},
			FilterGroupEmails: getEnvBool("INSIGHT_SEPARATE_RECIPIENTS", defaults.FilterGroupEmails),
			UseBusinessHours:  getEnvBool("INSIGHT_BUSINESS_HOURS", defaults.UseBusinessHours),
			ShameThreshold:    getEnvInt("INSIGHT_SHAME_THRESHOLD", defaults.ShameThreshold),
			IgnoreThreshold:   getEnvInt("INSIGHT_IGNORE_THRESHOLD", defaults.IgnoreThreshold),
		},

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderOutlook:
		if c.MicrosoftClientID == "" || c.MicrosoftRefreshToken == "" {
			return apperr.ConfigError("outlook provider requires MICROSOFT_CLIENT_ID and MICROSOFT_REFRESH_TOKEN")
		}
	case ProviderGmail:
		if c.GoogleClientID == "" || c.GoogleRefreshToken == "" {
			return apperr.ConfigError("gmail provider requires GOOGLE_CLIENT_ID and GOOGLE_REFRESH_TOKEN")
		}
	case ProviderSample:
	default:
		return apperr.ConfigError(fmt.Sprintf("unknown INSIGHT_PROVIDER %q", c.Provider))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return apperr.ConfigError(fmt.Sprintf("invalid INSIGHT_TIMEZONE %q", c.Timezone)).WithError(err)
	}
	c.location = loc

	if err := c.Analysis.Validate(); err != nil {
		return apperr.ConfigError("invalid analysis defaults: " + err.Error())
	}
	return nil
}

// Location returns the business-hours time zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// RefreshInterval returns the scheduler interval.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMin) * time.Minute
}

// SnapshotTTL returns how long stored snapshots live in Redis.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHour) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
