// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/watchctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSportID is the Rec sport identifier for pickleball, the activity
// this deployment watches by default.
const DefaultSportID = "bd745b6e-1dd6-43e2-a69f-06f094808a96"

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Upstream Rec API
	RecBaseURL       string
	OrganizationSlug string
	SportID          string
	HTTPTimeout      time.Duration

	// Scraper
	ScraperEnabled bool
	ScrapeInterval time.Duration
	Timezone       string // fallback when a location carries none

	// SMTP alert delivery
	SMTPEnabled     bool
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromAddress string
	SMTPUseTLS      bool

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
// Invalid combinations (SMTP enabled without a host, missing database URL)
// fail here, at startup, never per pass.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		RecBaseURL:       envOr("REC_BASE_URL", "https://api.rec.us"),
		OrganizationSlug: envOr("ORGANIZATION_SLUG", "san-francisco-rec-park"),
		SportID:          envOr("SPORT_ID", DefaultSportID),
		HTTPTimeout:      time.Duration(envInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,

		ScraperEnabled: envBool("SCRAPER_ENABLED", true),
		ScrapeInterval: time.Duration(envInt("SCRAPE_INTERVAL_SECONDS", 300)) * time.Second,
		Timezone:       envOr("TIMEZONE", "America/Los_Angeles"),

		SMTPEnabled:     envBool("SMTP_ENABLED", false),
		SMTPHost:        envOr("SMTP_HOST", ""),
		SMTPPort:        envInt("SMTP_PORT", 587),
		SMTPUsername:    envOr("SMTP_USERNAME", ""),
		SMTPPassword:    envOr("SMTP_PASSWORD", ""),
		SMTPFromAddress: envOr("SMTP_FROM_ADDRESS", "alerts@example.com"),
		SMTPUseTLS:      envBool("SMTP_USE_TLS", true),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}

	if cfg.SMTPEnabled && cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_ENABLED is set but SMTP_HOST is empty")
	}
	// Polling faster than this hammers the upstream for no benefit.
	if cfg.ScrapeInterval < 15*time.Second {
		cfg.ScrapeInterval = 15 * time.Second
	}

	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
