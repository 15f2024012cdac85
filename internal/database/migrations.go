// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/folio/internal/logging"
)

// Migration represents a versioned database migration.
type Migration struct {
	Version     int       // Unique version number (monotonically increasing)
	Name        string    // Human-readable migration name
	Description string    // Description of what this migration does
	Statements  []string  // Executed in order inside one transaction
	AppliedAt   time.Time // When the migration was applied (populated on query)
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at INTEGER NOT NULL
);
`

// getMigrations returns all versioned migrations in order.
//
// Migrations are append-only: never modify or remove one that has shipped.
func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "create_core_tables",
			Description: "Identity cache, pending queue, historical archive, bearer tokens",
			Statements: []string{
				`CREATE TABLE identity_cache (
					locator TEXT PRIMARY KEY,
					content_hash TEXT,
					remote_book_id INTEGER,
					title TEXT,
					author TEXT,
					isbn10 TEXT,
					isbn13 TEXT,
					last_accessed INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE pending_sessions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					book_id INTEGER,
					book_hash TEXT NOT NULL,
					book_type TEXT NOT NULL DEFAULT '',
					start_time INTEGER NOT NULL,
					end_time INTEGER NOT NULL,
					duration_seconds INTEGER NOT NULL,
					start_progress REAL NOT NULL DEFAULT 0,
					end_progress REAL NOT NULL DEFAULT 0,
					progress_delta REAL NOT NULL DEFAULT 0,
					start_location TEXT NOT NULL DEFAULT '',
					end_location TEXT NOT NULL DEFAULT '',
					created_at INTEGER NOT NULL,
					retry_count INTEGER NOT NULL DEFAULT 0,
					last_retry_at INTEGER
				)`,
				`CREATE TABLE historical_sessions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					source_book_id INTEGER NOT NULL,
					source_book_title TEXT NOT NULL DEFAULT '',
					book_id INTEGER,
					book_hash TEXT NOT NULL DEFAULT '',
					book_type TEXT NOT NULL DEFAULT '',
					start_time INTEGER NOT NULL,
					end_time INTEGER NOT NULL,
					duration_seconds INTEGER NOT NULL,
					start_progress REAL NOT NULL DEFAULT 0,
					end_progress REAL NOT NULL DEFAULT 0,
					progress_delta REAL NOT NULL DEFAULT 0,
					start_location TEXT NOT NULL DEFAULT '',
					end_location TEXT NOT NULL DEFAULT '',
					created_at INTEGER NOT NULL,
					retry_count INTEGER NOT NULL DEFAULT 0,
					last_retry_at INTEGER,
					matched INTEGER NOT NULL DEFAULT 0,
					synced INTEGER NOT NULL DEFAULT 0,
					UNIQUE (source_book_id, start_time, end_time)
				)`,
				`CREATE TABLE bearer_tokens (
					username TEXT PRIMARY KEY,
					token TEXT NOT NULL,
					expires_at INTEGER NOT NULL
				)`,
			},
		},
		{
			Version:     2,
			Name:        "pending_book_title",
			Description: "Carry the document title into archived live sessions",
			Statements: []string{
				`ALTER TABLE pending_sessions ADD COLUMN book_title TEXT NOT NULL DEFAULT ''`,
			},
		},
		{
			Version:     3,
			Name:        "lookup_indexes",
			Description: "Indexes for queue ordering and identity lookups",
			Statements: []string{
				`CREATE INDEX idx_pending_created ON pending_sessions (created_at, id)`,
				`CREATE INDEX idx_pending_hash ON pending_sessions (book_hash)`,
				`CREATE INDEX idx_identity_hash ON identity_cache (content_hash)`,
				`CREATE INDEX idx_identity_isbn13 ON identity_cache (isbn13)`,
				`CREATE INDEX idx_identity_isbn10 ON identity_cache (isbn10)`,
				`CREATE INDEX idx_historical_hash ON historical_sessions (book_hash)`,
				`CREATE INDEX idx_historical_state ON historical_sessions (matched, synced)`,
			},
		},
	}
}

// getAppliedMigrations returns version -> Migration for all applied migrations.
func (db *DB) getAppliedMigrations(ctx context.Context) (map[int]Migration, error) {
	history, err := db.migrationHistory(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[int]Migration, len(history))
	for _, m := range history {
		applied[m.Version] = m
	}
	return applied, nil
}

// runVersionedMigrations applies every migration not yet recorded.
func (db *DB) runVersionedMigrations(ctx context.Context) error {
	applied, err := db.applyMigrations(ctx, getMigrations())
	if err != nil {
		return err
	}
	if applied > 0 {
		logging.Info().Int("applied", applied).Msg("Applied database migrations")
	}
	return nil
}

// applyMigrations runs each unapplied migration in its own transaction.
// A failing statement rolls back that migration and stops the run; earlier
// migrations stay committed.
func (db *DB) applyMigrations(ctx context.Context, migrations []Migration) (int, error) {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	count := 0
	for _, m := range migrations {
		if _, exists := applied[m.Version]; exists {
			continue
		}

		err := db.withTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
				}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)`,
				m.Version, m.Name, m.Description, db.now().Unix()); err != nil {
				return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// GetCurrentSchemaVersion returns the highest applied migration version.
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// GetMigrationHistory returns all applied migrations in order.
func (db *DB) GetMigrationHistory(ctx context.Context) ([]Migration, error) {
	return db.migrationHistory(ctx)
}

func (db *DB) migrationHistory(ctx context.Context) ([]Migration, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT version, name, COALESCE(description, ''), applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer closeWithLog(rows, "migration rows")

	var history []Migration
	for rows.Next() {
		var m Migration
		var appliedAt int64
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		m.AppliedAt = fromUnix(appliedAt)
		history = append(history, m)
	}
	return history, rows.Err()
}
