// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package config

import "time"

// Validation modes for live sessions.
const (
	ValidationModeDuration = "duration"
	ValidationModePages    = "pages"
)

// Remote authentication modes.
const (
	AuthModeBearer = "bearer"
	AuthModeBasic  = "basic"
)

// Config is the complete Folio configuration.
type Config struct {
	Remote   RemoteConfig   `koanf:"remote"`
	Database DatabaseConfig `koanf:"database"`
	Tracking TrackingConfig `koanf:"tracking"`
	Sync     SyncConfig     `koanf:"sync"`
	Identity IdentityConfig `koanf:"identity"`
	Extract  ExtractConfig  `koanf:"extract"`
	Tasks    TasksConfig    `koanf:"tasks"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// RemoteConfig holds the catalog/tracking server connection.
type RemoteConfig struct {
	URL      string `koanf:"url" validate:"omitempty,url"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	AuthMode string `koanf:"auth_mode" validate:"oneof=bearer basic"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RequestsPerSecond paces outgoing requests; 0 disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=1"`

	// Circuit breaker: consecutive offline/server failures before opening,
	// and how long it stays open.
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`

	// TokenTTL is the assumed lifetime of a freshly issued bearer token.
	TokenTTL time.Duration `koanf:"token_ttl" validate:"gt=0"`
	// TokenRefreshMargin: cached tokens expiring sooner than this are replaced.
	TokenRefreshMargin time.Duration `koanf:"token_refresh_margin" validate:"gte=0"`
}

// DatabaseConfig holds the local SQLite store settings.
type DatabaseConfig struct {
	Path        string        `koanf:"path" validate:"required"`
	BusyTimeout time.Duration `koanf:"busy_timeout" validate:"gte=0"`
}

// TrackingConfig holds live session validation settings.
type TrackingConfig struct {
	ValidationMode string        `koanf:"validation_mode" validate:"oneof=duration pages"`
	MinDuration    time.Duration `koanf:"min_duration" validate:"gte=0"`
	MinPages       int           `koanf:"min_pages" validate:"gte=1"`

	// ManualOnly disables opportunistic and resume-triggered sync passes.
	ManualOnly bool `koanf:"manual_only"`

	// SyncOnResume runs a sync pass when the host resumes from suspend.
	SyncOnResume bool `koanf:"sync_on_resume"`
}

// SyncConfig holds queue draining settings.
type SyncConfig struct {
	// PageSize is how many pending rows one pass reads.
	PageSize int `koanf:"page_size" validate:"gte=1,lte=1000"`

	// BatchSize is the maximum sessions per batch request.
	BatchSize int `koanf:"batch_size" validate:"gte=1,lte=100"`

	// Interval schedules periodic passes in serve mode; 0 disables them.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`
}

// IdentityConfig holds resolver settings.
type IdentityConfig struct {
	NegativeTTL      time.Duration `koanf:"negative_ttl" validate:"gte=0"`
	NegativeCapacity int           `koanf:"negative_capacity" validate:"gte=1"`
}

// ExtractConfig holds bulk history extraction settings.
type ExtractConfig struct {
	// StatsDBPath is the host reading-statistics SQLite file.
	StatsDBPath string `koanf:"stats_db_path"`

	// BooksPerTick is how many books one task-queue unit processes.
	BooksPerTick int `koanf:"books_per_tick" validate:"gte=1"`

	// Gap closes a reconstruction window when exceeded between observations.
	Gap time.Duration `koanf:"gap" validate:"gt=0"`
}

// TasksConfig holds the cooperative task queue settings.
type TasksConfig struct {
	TickInterval time.Duration `koanf:"tick_interval" validate:"gt=0"`
}

// ServerConfig holds the local bridge HTTP server settings.
type ServerConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RateLimitRequests per RateLimitWindow are accepted from the host.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format     string `koanf:"format" validate:"oneof=json console"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
}
