// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/folio/internal/models"
)

const identityColumns = `locator, content_hash, remote_book_id, title, author, isbn10, isbn13, last_accessed`

// UpsertIdentity merges e into the cache row for e.Locator.
//
// Nil fields keep the stored value. A changed content hash at the same
// locator drops the stored remote book id unless e carries a new one.
func (db *DB) UpsertIdentity(ctx context.Context, e *models.IdentityCacheEntry) error {
	if e.Locator == "" {
		return fmt.Errorf("upsert identity: empty locator")
	}
	accessed := e.LastAccessed
	if accessed.IsZero() {
		accessed = db.now()
	}

	_, err := db.conn.ExecContext(ctx, `
INSERT INTO identity_cache (`+identityColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(locator) DO UPDATE SET
	remote_book_id = CASE
		WHEN excluded.remote_book_id IS NOT NULL THEN excluded.remote_book_id
		WHEN excluded.content_hash IS NOT NULL AND identity_cache.content_hash IS NOT NULL
			AND excluded.content_hash <> identity_cache.content_hash THEN NULL
		ELSE identity_cache.remote_book_id
	END,
	content_hash = COALESCE(excluded.content_hash, identity_cache.content_hash),
	title = COALESCE(excluded.title, identity_cache.title),
	author = COALESCE(excluded.author, identity_cache.author),
	isbn10 = COALESCE(excluded.isbn10, identity_cache.isbn10),
	isbn13 = COALESCE(excluded.isbn13, identity_cache.isbn13),
	last_accessed = MAX(excluded.last_accessed, identity_cache.last_accessed)`,
		e.Locator,
		nullableString(e.ContentHash),
		nullableInt64(e.RemoteBookID),
		nullableString(e.Title),
		nullableString(e.Author),
		nullableString(e.ISBN10),
		nullableString(e.ISBN13),
		toUnix(accessed),
	)
	if err != nil {
		return fmt.Errorf("upsert identity %s: %w", e.Locator, err)
	}
	return nil
}

// BackfillIdentityByHash merges the known fields of e into every row sharing
// hash. When no row carries the hash yet, a row under the synthetic locator
// for hash is created. The same nil-keeps-value rule applies.
func (db *DB) BackfillIdentityByHash(ctx context.Context, hash string, e *models.IdentityCacheEntry) error {
	if hash == "" {
		return fmt.Errorf("backfill identity: empty hash")
	}
	res, err := db.conn.ExecContext(ctx, `
UPDATE identity_cache SET
	remote_book_id = COALESCE(?, remote_book_id),
	title = COALESCE(?, title),
	author = COALESCE(?, author),
	isbn10 = COALESCE(?, isbn10),
	isbn13 = COALESCE(?, isbn13),
	last_accessed = ?
WHERE content_hash = ?`,
		nullableInt64(e.RemoteBookID),
		nullableString(e.Title),
		nullableString(e.Author),
		nullableString(e.ISBN10),
		nullableString(e.ISBN13),
		toUnix(db.now()),
		hash,
	)
	if err != nil {
		return fmt.Errorf("backfill identity %s: %w", hash, err)
	}
	if n, _ := res.RowsAffected(); n > 0 { //nolint:errcheck // sqlite always reports rows affected
		return nil
	}

	entry := *e
	entry.Locator = SyntheticLocator(hash)
	entry.ContentHash = &hash
	return db.UpsertIdentity(ctx, &entry)
}

// SyntheticLocator is the cache key for a document known only by its hash.
func SyntheticLocator(hash string) string {
	return "hash:" + hash
}

// IdentityByLocator returns the cache row for locator, or ErrNotFound.
func (db *DB) IdentityByLocator(ctx context.Context, locator string) (*models.IdentityCacheEntry, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identity_cache WHERE locator = ?`, locator)
	return scanIdentity(row)
}

// IdentityByHash returns the best cache row for hash, preferring rows that
// carry a remote book id, or ErrNotFound.
func (db *DB) IdentityByHash(ctx context.Context, hash string) (*models.IdentityCacheEntry, error) {
	row := db.conn.QueryRowContext(ctx, `
SELECT `+identityColumns+` FROM identity_cache
WHERE content_hash = ?
ORDER BY remote_book_id IS NULL, last_accessed DESC
LIMIT 1`, hash)
	return scanIdentity(row)
}

// IdentityByISBN returns a cache row with the given ISBN-10 or ISBN-13 that
// carries a remote book id, or ErrNotFound.
func (db *DB) IdentityByISBN(ctx context.Context, isbn string) (*models.IdentityCacheEntry, error) {
	row := db.conn.QueryRowContext(ctx, `
SELECT `+identityColumns+` FROM identity_cache
WHERE (isbn13 = ? OR isbn10 = ?) AND remote_book_id IS NOT NULL
ORDER BY last_accessed DESC
LIMIT 1`, isbn, isbn)
	return scanIdentity(row)
}

// TouchIdentity records an access to locator.
func (db *DB) TouchIdentity(ctx context.Context, locator string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE identity_cache SET last_accessed = ? WHERE locator = ?`, toUnix(db.now()), locator)
	if err != nil {
		return fmt.Errorf("touch identity %s: %w", locator, err)
	}
	return nil
}

// ForgetRemoteBookID clears the remote id of every row with hash. Used when
// the server reports the book as gone; other fields are kept.
func (db *DB) ForgetRemoteBookID(ctx context.Context, hash string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE identity_cache SET remote_book_id = NULL WHERE content_hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("forget remote id %s: %w", hash, err)
	}
	return nil
}

// CountIdentities returns the number of cache rows.
func (db *DB) CountIdentities(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM identity_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return n, nil
}

func scanIdentity(row *sql.Row) (*models.IdentityCacheEntry, error) {
	var (
		e                                   models.IdentityCacheEntry
		hash, title, author, isbn10, isbn13 sql.NullString
		remoteID                            sql.NullInt64
		accessed                            int64
	)
	err := row.Scan(&e.Locator, &hash, &remoteID, &title, &author, &isbn10, &isbn13, &accessed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	e.ContentHash = fromNullString(hash)
	e.RemoteBookID = fromNullInt64(remoteID)
	e.Title = fromNullString(title)
	e.Author = fromNullString(author)
	e.ISBN10 = fromNullString(isbn10)
	e.ISBN13 = fromNullString(isbn13)
	e.LastAccessed = fromUnix(accessed)
	return &e, nil
}
