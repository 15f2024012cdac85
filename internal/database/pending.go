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

	"github.com/tomtom215/folio/internal/models"
)

const pendingColumns = `id, book_id, book_hash, book_title, book_type, start_time, end_time,
	duration_seconds, start_progress, end_progress, progress_delta,
	start_location, end_location, created_at, retry_count, last_retry_at`

// EnqueuePending inserts s and returns its row id. CreatedAt defaults to now.
func (db *DB) EnqueuePending(ctx context.Context, s *models.PendingSession) (int64, error) {
	if s.BookHash == "" {
		return 0, fmt.Errorf("enqueue pending: empty book hash")
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = db.now()
	}

	res, err := db.conn.ExecContext(ctx, `
INSERT INTO pending_sessions (book_id, book_hash, book_title, book_type, start_time, end_time,
	duration_seconds, start_progress, end_progress, progress_delta,
	start_location, end_location, created_at, retry_count, last_retry_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableInt64(s.BookID), s.BookHash, s.BookTitle, s.BookType,
		toUnix(s.StartTime), toUnix(s.EndTime), s.DurationSeconds,
		s.StartProgress, s.EndProgress, s.ProgressDelta,
		s.StartLocation, s.EndLocation, toUnix(created), s.RetryCount, nullableUnix(s.LastRetryAt),
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue pending: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue pending: %w", err)
	}
	s.ID = id
	s.CreatedAt = created
	return id, nil
}

// ListPending returns up to limit rows, oldest first.
func (db *DB) ListPending(ctx context.Context, limit int) ([]models.PendingSession, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_sessions ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer closeWithLog(rows, "pending rows")

	var out []models.PendingSession
	for rows.Next() {
		var (
			s         models.PendingSession
			bookID    sql.NullInt64
			lastRetry sql.NullInt64
			start     int64
			end       int64
			created   int64
		)
		if err := rows.Scan(&s.ID, &bookID, &s.BookHash, &s.BookTitle, &s.BookType, &start, &end,
			&s.DurationSeconds, &s.StartProgress, &s.EndProgress, &s.ProgressDelta,
			&s.StartLocation, &s.EndLocation, &created, &s.RetryCount, &lastRetry); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		s.BookID = fromNullInt64(bookID)
		s.StartTime = fromUnix(start)
		s.EndTime = fromUnix(end)
		s.CreatedAt = fromUnix(created)
		s.LastRetryAt = fromNullUnix(lastRetry)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountPending returns the number of queued sessions.
func (db *DB) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// IncrementRetry bumps the retry counter of a row that stays queued.
func (db *DB) IncrementRetry(ctx context.Context, id int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE pending_sessions SET retry_count = retry_count + 1, last_retry_at = ? WHERE id = ?`,
		toUnix(at), id)
	if err != nil {
		return fmt.Errorf("increment retry %d: %w", id, err)
	}
	return nil
}

// SetPendingBookID records the resolved remote book id of a queued row.
func (db *DB) SetPendingBookID(ctx context.Context, id, bookID int64) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE pending_sessions SET book_id = ? WHERE id = ?`, bookID, id)
	if err != nil {
		return fmt.Errorf("set pending book id %d: %w", id, err)
	}
	return nil
}

// ClearPendingBookID forgets the remote book id of a queued row so that it
// is re-resolved on the next pass.
func (db *DB) ClearPendingBookID(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE pending_sessions SET book_id = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear pending book id %d: %w", id, err)
	}
	return nil
}

// AssignBookIDForHash resolves every queued row of a document at once and
// returns how many rows changed.
func (db *DB) AssignBookIDForHash(ctx context.Context, hash string, bookID int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE pending_sessions SET book_id = ? WHERE book_hash = ?`, bookID, hash)
	if err != nil {
		return 0, fmt.Errorf("assign book id for %s: %w", hash, err)
	}
	return res.RowsAffected()
}

// ArchiveAndRemove moves a synced pending row into the archive (matched and
// synced, source_book_id 0) and deletes it, in one transaction. Archiving a
// row whose natural key is already archived only deletes the pending row, so
// repeated calls are harmless.
func (db *DB) ArchiveAndRemove(ctx context.Context, id int64, at time.Time) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO historical_sessions (source_book_id, source_book_title, book_id, book_hash, book_type,
	start_time, end_time, duration_seconds, start_progress, end_progress, progress_delta,
	start_location, end_location, created_at, retry_count, last_retry_at, matched, synced)
SELECT ?, book_title, book_id, book_hash, book_type,
	start_time, end_time, duration_seconds, start_progress, end_progress, progress_delta,
	start_location, end_location, ?, retry_count, last_retry_at, 1, 1
FROM pending_sessions WHERE id = ?
ON CONFLICT (source_book_id, start_time, end_time) DO NOTHING`,
			models.LiveSourceBookID, toUnix(at), id); err != nil {
			return fmt.Errorf("archive pending %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("remove pending %d: %w", id, err)
		}
		return nil
	})
}

// ClearPending deletes every queued row. Only an explicit user action calls this.
func (db *DB) ClearPending(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM pending_sessions`)
	if err != nil {
		return 0, fmt.Errorf("clear pending: %w", err)
	}
	return res.RowsAffected()
}
