// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package hoststats

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	// Pure Go SQLite driver
	_ "modernc.org/sqlite"

	"github.com/tomtom215/folio/internal/models"
)

// Book is a row of the host's book table.
type Book struct {
	ID      int64
	Title   string
	Authors string
	MD5     string
	Pages   int
}

// Reader reads a host statistics database.
type Reader struct {
	db   *sql.DB
	path string
}

// NewReader opens path read-only and checks that the expected tables exist.
func NewReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("statistics database: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open statistics database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := verifyTables(db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on error path
		return nil, fmt.Errorf("verify tables: %w", err)
	}

	return &Reader{db: db, path: path}, nil
}

// verifyTables checks that the host statistics tables exist.
func verifyTables(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, table := range []string{"book", "page_stat_data"} {
		var count int
		err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if count == 0 {
			return fmt.Errorf("table %s not found", table)
		}
	}
	return nil
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Path returns the file being read.
func (r *Reader) Path() string {
	return r.path
}

// CountBooks returns the number of books with at least one observation.
func (r *Reader) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM book b WHERE EXISTS (SELECT 1 FROM page_stat_data p WHERE p.id_book = b.id)",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

// ListBooks returns up to limit books with observations and id > afterID,
// ordered by id so extraction can resume.
func (r *Reader) ListBooks(ctx context.Context, afterID int64, limit int) ([]Book, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, COALESCE(b.title, ''), COALESCE(b.authors, ''), COALESCE(b.md5, ''), COALESCE(b.pages, 0)
		FROM book b
		WHERE b.id > ?
		  AND EXISTS (SELECT 1 FROM page_stat_data p WHERE p.id_book = b.id)
		ORDER BY b.id ASC
		LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Authors, &b.MD5, &b.Pages); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// Observations returns the page observations of one book ordered by time.
// A missing per-row total_pages falls back to the book's page count.
func (r *Reader) Observations(ctx context.Context, book *Book) ([]models.Observation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT start_time, COALESCE(duration, 0), page, COALESCE(total_pages, 0)
		FROM page_stat_data
		WHERE id_book = ?
		ORDER BY start_time ASC, page ASC`, book.ID)
	if err != nil {
		return nil, fmt.Errorf("query observations for book %d: %w", book.ID, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []models.Observation
	for rows.Next() {
		var (
			o         models.Observation
			startUnix int64
		)
		if err := rows.Scan(&startUnix, &o.DurationSeconds, &o.Page, &o.TotalPages); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Timestamp = time.Unix(startUnix, 0).UTC()
		if o.TotalPages <= 0 {
			o.TotalPages = book.Pages
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

// DateRange returns the earliest and latest observation timestamps.
func (r *Reader) DateRange(ctx context.Context) (earliest, latest time.Time, err error) {
	var minTS, maxTS sql.NullInt64
	err = r.db.QueryRowContext(ctx,
		"SELECT MIN(start_time), MAX(start_time) FROM page_stat_data",
	).Scan(&minTS, &maxTS)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("get date range: %w", err)
	}
	if !minTS.Valid {
		return time.Time{}, time.Time{}, nil
	}
	return time.Unix(minTS.Int64, 0).UTC(), time.Unix(maxTS.Int64, 0).UTC(), nil
}
