// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/folio/internal/models"
)

const historicalColumns = `id, source_book_id, source_book_title, book_id, book_hash, book_type,
	start_time, end_time, duration_seconds, start_progress, end_progress, progress_delta,
	start_location, end_location, created_at, retry_count, last_retry_at, matched, synced`

// UnmatchedBook groups archive rows that still lack a remote book id.
type UnmatchedBook struct {
	BookHash     string
	Title        string
	SourceBookID int64
	Sessions     int
}

// InsertHistorical stores h unless its natural key already exists and
// reports whether a row was written.
func (db *DB) InsertHistorical(ctx context.Context, h *models.HistoricalSession) (bool, error) {
	created := h.CreatedAt
	if created.IsZero() {
		created = db.now()
	}
	res, err := db.conn.ExecContext(ctx, `
INSERT INTO historical_sessions (source_book_id, source_book_title, book_id, book_hash, book_type,
	start_time, end_time, duration_seconds, start_progress, end_progress, progress_delta,
	start_location, end_location, created_at, retry_count, last_retry_at, matched, synced)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source_book_id, start_time, end_time) DO NOTHING`,
		h.SourceBookID, h.SourceBookTitle, nullableInt64(h.BookID), h.BookHash, h.BookType,
		toUnix(h.StartTime), toUnix(h.EndTime), h.DurationSeconds,
		h.StartProgress, h.EndProgress, h.ProgressDelta,
		h.StartLocation, h.EndLocation, toUnix(created), h.RetryCount, nullableUnix(h.LastRetryAt),
		h.Matched, h.Synced,
	)
	if err != nil {
		return false, fmt.Errorf("insert historical: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert historical: %w", err)
	}
	return n > 0, nil
}

// ListHistorical returns archive rows matching f, ordered by start time.
func (db *DB) ListHistorical(ctx context.Context, f models.HistoricalFilter) ([]models.HistoricalSession, error) {
	var (
		where []string
		args  []any
	)
	if f.Matched != nil {
		where = append(where, "matched = ?")
		args = append(args, *f.Matched)
	}
	if f.Synced != nil {
		where = append(where, "synced = ?")
		args = append(args, *f.Synced)
	}
	if f.BookHash != "" {
		where = append(where, "book_hash = ?")
		args = append(args, f.BookHash)
	}

	query := `SELECT ` + historicalColumns + ` FROM historical_sessions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list historical: %w", err)
	}
	defer closeWithLog(rows, "historical rows")

	var out []models.HistoricalSession
	for rows.Next() {
		var (
			h         models.HistoricalSession
			bookID    sql.NullInt64
			lastRetry sql.NullInt64
			start     int64
			end       int64
			created   int64
		)
		if err := rows.Scan(&h.ID, &h.SourceBookID, &h.SourceBookTitle, &bookID, &h.BookHash, &h.BookType,
			&start, &end, &h.DurationSeconds, &h.StartProgress, &h.EndProgress, &h.ProgressDelta,
			&h.StartLocation, &h.EndLocation, &created, &h.RetryCount, &lastRetry, &h.Matched, &h.Synced); err != nil {
			return nil, fmt.Errorf("scan historical: %w", err)
		}
		h.BookID = fromNullInt64(bookID)
		h.StartTime = fromUnix(start)
		h.EndTime = fromUnix(end)
		h.CreatedAt = fromUnix(created)
		h.LastRetryAt = fromNullUnix(lastRetry)
		out = append(out, h)
	}
	return out, rows.Err()
}

// MarkHistoricalSynced flags rows as uploaded.
func (db *DB) MarkHistoricalSynced(ctx context.Context, ids []int64) error {
	return db.updateHistorical(ctx, `UPDATE historical_sessions SET synced = 1 WHERE id = ?`, ids)
}

// MarkHistoricalUnmatched records that the server no longer knows the rows'
// book: matched and synced are cleared and the book id is forgotten.
func (db *DB) MarkHistoricalUnmatched(ctx context.Context, ids []int64) error {
	return db.updateHistorical(ctx,
		`UPDATE historical_sessions SET matched = 0, synced = 0, book_id = NULL WHERE id = ?`, ids)
}

// IncrementHistoricalRetry bumps the retry counter of rows whose upload failed.
func (db *DB) IncrementHistoricalRetry(ctx context.Context, ids []int64, at time.Time) error {
	ts := toUnix(at)
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE historical_sessions SET retry_count = retry_count + 1, last_retry_at = ? WHERE id = ?`,
				ts, id); err != nil {
				return fmt.Errorf("increment historical retry %d: %w", id, err)
			}
		}
		return nil
	})
}

func (db *DB) updateHistorical(ctx context.Context, stmt string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("update historical %d: %w", id, err)
			}
		}
		return nil
	})
}

// MatchHistoricalByHash assigns bookID to every unsynced archive row of a
// document and returns how many rows changed.
func (db *DB) MatchHistoricalByHash(ctx context.Context, hash string, bookID int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE historical_sessions SET book_id = ?, matched = 1 WHERE book_hash = ? AND synced = 0`,
		bookID, hash)
	if err != nil {
		return 0, fmt.Errorf("match historical %s: %w", hash, err)
	}
	return res.RowsAffected()
}

// ListUnmatchedBooks returns up to limit documents with unmatched archive rows.
func (db *DB) ListUnmatchedBooks(ctx context.Context, limit int) ([]UnmatchedBook, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx, `
SELECT book_hash, MAX(source_book_title), MAX(source_book_id), COUNT(*)
FROM historical_sessions
WHERE matched = 0 AND book_hash <> ''
GROUP BY book_hash
ORDER BY MIN(start_time)
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unmatched books: %w", err)
	}
	defer closeWithLog(rows, "unmatched rows")

	var out []UnmatchedBook
	for rows.Next() {
		var b UnmatchedBook
		if err := rows.Scan(&b.BookHash, &b.Title, &b.SourceBookID, &b.Sessions); err != nil {
			return nil, fmt.Errorf("scan unmatched book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetHistoricalStats summarises the archive.
func (db *DB) GetHistoricalStats(ctx context.Context) (models.HistoricalStats, error) {
	var s models.HistoricalStats
	err := db.conn.QueryRowContext(ctx, `
SELECT COUNT(*),
	COALESCE(SUM(matched), 0),
	COALESCE(SUM(1 - matched), 0),
	COALESCE(SUM(synced), 0)
FROM historical_sessions`).Scan(&s.Total, &s.Matched, &s.Unmatched, &s.Synced)
	if err != nil {
		return s, fmt.Errorf("historical stats: %w", err)
	}
	return s, nil
}
