// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Upstream services
	TonAPIURL      string // Chain indexer base URL
	RiskBackendURL string // Risk scoring backend (optional, local scorer only if not set)

	// Telegram bot
	TelegramBotToken string // Optional; telegram routes are inert without it
	AppURL           string // Public Mini App URL, used for webhook target and menu button

	// History
	HistoryCapacity int // Max retained history entries per user

	// Security
	RateLimitRPM int

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint (optional, tracing is a no-op if not set)
}

const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultTonAPIURL       = "https://tonapi.io"
	DefaultHistoryCapacity = 100
	DefaultRateLimit       = 60
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:      os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		TonAPIURL:        getEnv("TONAPI_URL", DefaultTonAPIURL),
		RiskBackendURL:   os.Getenv("RISK_BACKEND_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AppURL:           os.Getenv("APP_URL"),
		HistoryCapacity:  getEnvInt("HISTORY_CAPACITY", DefaultHistoryCapacity),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.TonAPIURL == "" {
		return fmt.Errorf("TONAPI_URL is required")
	}
	if _, err := url.ParseRequestURI(c.TonAPIURL); err != nil {
		return fmt.Errorf("TONAPI_URL must be a valid URL: %w", err)
	}

	if c.RiskBackendURL != "" {
		if _, err := url.ParseRequestURI(c.RiskBackendURL); err != nil {
			return fmt.Errorf("RISK_BACKEND_URL must be a valid URL: %w", err)
		}
	}

	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("HISTORY_CAPACITY must be positive")
	}

	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TelegramEnabled returns true if a bot token is configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// Helper functions

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
