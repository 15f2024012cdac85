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

// GetToken returns the cached token for username, or ErrNotFound.
func (db *DB) GetToken(ctx context.Context, username string) (*models.BearerToken, error) {
	var (
		t       models.BearerToken
		expires int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT username, token, expires_at FROM bearer_tokens WHERE username = ?`, username).
		Scan(&t.Username, &t.Token, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	t.ExpiresAt = fromUnix(expires)
	return &t, nil
}

// SaveToken replaces the cached token for t.Username.
func (db *DB) SaveToken(ctx context.Context, t *models.BearerToken) error {
	_, err := db.conn.ExecContext(ctx, `
INSERT INTO bearer_tokens (username, token, expires_at) VALUES (?, ?, ?)
ON CONFLICT(username) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at`,
		t.Username, t.Token, toUnix(t.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// DeleteToken removes the cached token for username.
func (db *DB) DeleteToken(ctx context.Context, username string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM bearer_tokens WHERE username = ?`, username); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
