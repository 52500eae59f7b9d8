// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers optional files and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":10000".
	Addr string `koanf:"addr"`

	// WriteTimeout bounds a whole HTTP response. A cold-cache request waits
	// for a full rebuild, so this is long.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// StoreBackend selects where the snapshot lives: file, memory or badger.
	StoreBackend string `koanf:"store_backend"`

	// CachePath is the snapshot file for the file backend.
	CachePath string `koanf:"cache_path"`

	// BadgerDir is the database directory for the badger backend.
	BadgerDir string `koanf:"badger_dir"`

	// CacheTTL is the freshness window of a stored snapshot.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// WarmOnStart builds the snapshot in the background at startup when the
	// stored one is absent or stale.
	WarmOnStart bool `koanf:"warm_on_start"`

	// SourceBaseURL is the catalog service root.
	SourceBaseURL string `koanf:"source_base_url"`

	// UserAgent is sent with every catalog request.
	UserAgent string `koanf:"user_agent"`

	// HTTPTimeout bounds a single catalog request.
	HTTPTimeout time.Duration `koanf:"http_timeout"`

	// PageCount is the number of listing pages scanned per rebuild.
	PageCount int `koanf:"page_count"`

	// PageInterval and DetailInterval space consecutive catalog requests.
	PageInterval   time.Duration `koanf:"page_interval"`
	DetailInterval time.Duration `koanf:"detail_interval"`

	// WorkerCount sets the number of enrichment workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the enrichment queue.
	QueueSize int `koanf:"queue_size"`

	// CORSAllowedOrigins lists origins allowed by CORS.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per RateLimitWindow per client IP; 0 disables.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":10000",
		WriteTimeout:       30 * time.Minute,
		StoreBackend:       BackendFile,
		CachePath:          "candidates.json",
		BadgerDir:          "data/badger",
		CacheTTL:           30 * 24 * time.Hour,
		WarmOnStart:        false,
		SourceBaseURL:      "https://boardgamegeek.com",
		UserAgent:          "meeple-recommender/1.0",
		HTTPTimeout:        20 * time.Second,
		PageCount:          20,
		PageInterval:       time.Second,
		DetailInterval:     500 * time.Millisecond,
		WorkerCount:        runtime.NumCPU(),
		QueueSize:          10_000,
		CORSAllowedOrigins: []string{"*"},
		RateLimitRequests:  60,
		RateLimitWindow:    time.Minute,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CacheTTL <= 0:
		return fmt.Errorf("%w: cache_ttl must be positive", ErrInvalidConfig)
	case c.PageCount < 1:
		return fmt.Errorf("%w: page_count must be at least 1", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be at least 1", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.PageInterval < 0 || c.DetailInterval < 0:
		return fmt.Errorf("%w: intervals must not be negative", ErrInvalidConfig)
	case strings.TrimSpace(c.SourceBaseURL) == "":
		return fmt.Errorf("%w: source_base_url must not be empty", ErrInvalidConfig)
	}
	switch c.StoreBackend {
	case BackendFile:
		if strings.TrimSpace(c.CachePath) == "" {
			return fmt.Errorf("%w: cache_path must not be empty", ErrInvalidConfig)
		}
	case BackendBadger:
		if strings.TrimSpace(c.BadgerDir) == "" {
			return fmt.Errorf("%w: badger_dir must not be empty", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
