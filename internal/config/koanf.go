// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"folio.yaml",
	"folio.yml",
	"/etc/folio/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			AuthMode:           AuthModeBearer,
			Timeout:            10 * time.Second,
			RequestsPerSecond:  5,
			Burst:              5,
			BreakerFailures:    5,
			BreakerTimeout:     60 * time.Second,
			TokenTTL:           28 * 24 * time.Hour,
			TokenRefreshMargin: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Path:        "folio.db",
			BusyTimeout: 5 * time.Second,
		},
		Tracking: TrackingConfig{
			ValidationMode: ValidationModeDuration,
			MinDuration:    30 * time.Second,
			MinPages:       3,
			ManualOnly:     false,
			SyncOnResume:   true,
		},
		Sync: SyncConfig{
			PageSize:  100,
			BatchSize: 100,
			Interval:  0,
		},
		Identity: IdentityConfig{
			NegativeTTL:      10 * time.Minute,
			NegativeCapacity: 1000,
		},
		Extract: ExtractConfig{
			BooksPerTick: 5,
			Gap:          300 * time.Second,
		},
		Tasks: TasksConfig{
			TickInterval: 200 * time.Millisecond,
		},
		Server: ServerConfig{
			Enabled:           true,
			Host:              "127.0.0.1",
			Port:              8790,
			Timeout:           30 * time.Second,
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Config file (optional YAML)
//  3. Environment variables
//
// explicitPath, when non-empty, takes precedence over CONFIG_PATH and the
// default search paths and must exist.
func LoadWithKoanf(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := explicitPath
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Remote server
	"folio_remote_url":                  "remote.url",
	"folio_remote_username":             "remote.username",
	"folio_remote_password":             "remote.password",
	"folio_remote_auth_mode":            "remote.auth_mode",
	"folio_remote_timeout":              "remote.timeout",
	"folio_remote_requests_per_second":  "remote.requests_per_second",
	"folio_remote_burst":                "remote.burst",
	"folio_remote_breaker_failures":     "remote.breaker_failures",
	"folio_remote_breaker_timeout":      "remote.breaker_timeout",
	"folio_remote_token_ttl":            "remote.token_ttl",
	"folio_remote_token_refresh_margin": "remote.token_refresh_margin",

	// Database
	"folio_db_path":      "database.path",
	"folio_busy_timeout": "database.busy_timeout",

	// Tracking
	"folio_validation_mode": "tracking.validation_mode",
	"folio_min_duration":    "tracking.min_duration",
	"folio_min_pages":       "tracking.min_pages",
	"folio_manual_only":     "tracking.manual_only",
	"folio_sync_on_resume":  "tracking.sync_on_resume",

	// Sync
	"folio_sync_page_size":  "sync.page_size",
	"folio_sync_batch_size": "sync.batch_size",
	"folio_sync_interval":   "sync.interval",

	// Identity
	"folio_negative_ttl":      "identity.negative_ttl",
	"folio_negative_capacity": "identity.negative_capacity",

	// Extraction
	"folio_stats_db_path":  "extract.stats_db_path",
	"folio_books_per_tick": "extract.books_per_tick",
	"folio_extract_gap":    "extract.gap",

	// Tasks
	"folio_tick_interval": "tasks.tick_interval",

	// Bridge server
	"folio_server_enabled": "server.enabled",
	"http_host":            "server.host",
	"http_port":            "server.port",
	"http_timeout":         "server.timeout",
	"rate_limit_requests":  "server.rate_limit_requests",
	"rate_limit_window":    "server.rate_limit_window",

	// Logging
	"log_level":       "logging.level",
	"log_format":      "logging.format",
	"log_caller":      "logging.caller",
	"log_file":        "logging.file",
	"log_max_size_mb": "logging.max_size_mb",
	"log_max_backups": "logging.max_backups",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped, so unrelated environment
// does not leak into the configuration.
//
// Examples:
//   - FOLIO_REMOTE_URL -> remote.url
//   - FOLIO_MIN_DURATION -> tracking.min_duration
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
