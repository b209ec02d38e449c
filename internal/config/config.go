package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"pdfscan/internal/extract"
	"pdfscan/internal/ledger"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string
	BaseURL    string
	ViewsDir   string
	StaticDir  string

	// Database
	DatabaseURL string

	// Pipeline
	SourceDir      string
	DestDir        string
	ContextWindow  int
	DedupPolicy    string
	ExtractEngines []string
	RunSchedule    string // cron spec; empty disables scheduled runs

	// Session
	RedisURL      string // session storage; in-memory when empty
	SessionSecret string // hashed into the cookie encryption key

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Events
	KafkaBrokers []string
	KafkaTopic   string

	// Logging
	LogLevel  string
	LogFormat string

	// Site Branding
	SiteTitle string

	// YAML config file path
	ConfigFile string

	parseErrs []error
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	c := &Config{
		Env:            getEnv("ENV", "development"),
		ServerAddr:     getEnv("SERVER_ADDR", ":3000"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:3000"),
		ViewsDir:       getEnv("VIEWS_DIR", "./views"),
		StaticDir:      getEnv("STATIC_DIR", "./static"),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/pdfscan?sslmode=disable"),
		SourceDir:      getEnv("SOURCE_DIR", "TaiVe"),
		DestDir:        getEnv("DEST_DIR", "TaiVe_Done"),
		DedupPolicy:    getEnv("MATCH_DEDUP_POLICY", string(ledger.SkipExisting)),
		ExtractEngines: splitList(getEnv("EXTRACT_ENGINES", strings.Join(extract.DefaultEngines, ","))),
		RunSchedule:    getEnv("RUN_SCHEDULE", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		SessionSecret:  getEnv("SESSION_SECRET", "change-me-in-production-min-32-chars"),
		CORSOrigins:    getEnv("CORS_ORIGINS", ""),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "pdfscan.events"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		SiteTitle:      getEnv("SITE_TITLE", "PDF Scan"),
		ConfigFile:     getEnv("CONFIG_FILE", "config.yaml"),
	}
	c.ContextWindow = c.getEnvInt("CONTEXT_WINDOW", 500)
	return c
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (c *Config) getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s: %q is not an integer", key, value))
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ApplyYAML fills pipeline settings from the YAML file where the matching
// environment variable is unset.
func (c *Config) ApplyYAML(y *YAMLConfig) {
	if y == nil {
		return
	}
	p := y.Pipeline
	if p.SourceDir != "" && os.Getenv("SOURCE_DIR") == "" {
		c.SourceDir = p.SourceDir
	}
	if p.DestDir != "" && os.Getenv("DEST_DIR") == "" {
		c.DestDir = p.DestDir
	}
	if p.ContextWindow != nil && os.Getenv("CONTEXT_WINDOW") == "" {
		c.ContextWindow = *p.ContextWindow
	}
	if p.DedupPolicy != "" && os.Getenv("MATCH_DEDUP_POLICY") == "" {
		c.DedupPolicy = p.DedupPolicy
	}
	if len(p.ExtractEngines) > 0 && os.Getenv("EXTRACT_ENGINES") == "" {
		c.ExtractEngines = p.ExtractEngines
	}
	if p.RunSchedule != "" && os.Getenv("RUN_SCHEDULE") == "" {
		c.RunSchedule = p.RunSchedule
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.parseErrs...)
	if c.SourceDir == "" {
		errs = append(errs, errors.New("SOURCE_DIR must not be empty"))
	}
	if c.DestDir == "" {
		errs = append(errs, errors.New("DEST_DIR must not be empty"))
	}
	if c.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("CONTEXT_WINDOW must not be negative, got %d", c.ContextWindow))
	}
	if _, err := ledger.ParseDedupPolicy(c.DedupPolicy); err != nil {
		errs = append(errs, fmt.Errorf("MATCH_DEDUP_POLICY: %w", err))
	}
	if len(c.ExtractEngines) == 0 {
		errs = append(errs, errors.New("EXTRACT_ENGINES must name at least one engine"))
	}
	for _, name := range c.ExtractEngines {
		if !extract.IsAvailable(name) {
			errs = append(errs, fmt.Errorf("EXTRACT_ENGINES: unknown engine %q (available: %s)",
				name, strings.Join(extract.Available(), ", ")))
		}
	}
	return errors.Join(errs...)
}

// Dedup returns the parsed dedup policy. Call Validate first.
func (c *Config) Dedup() ledger.DedupPolicy {
	policy, _ := ledger.ParseDedupPolicy(c.DedupPolicy)
	return policy
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// KafkaEnabled reports whether events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
