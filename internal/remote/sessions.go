// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package remote

import (
	"context"
	"net/http"

	"github.com/tomtom215/folio/internal/models"
)

// Upload endpoint paths.
const (
	SessionPath = "/reading-sessions"
	BatchPath   = "/reading-sessions/batch"
)

// SubmitSession uploads one session.
func (c *Client) SubmitSession(ctx context.Context, session *models.SessionPayload) error {
	return c.do(ctx, &request{
		method:   http.MethodPost,
		path:     SessionPath,
		body:     session,
		endpoint: "session",
		authed:   true,
	}, nil)
}

// SubmitBatch uploads up to 100 sessions of one book.
func (c *Client) SubmitBatch(ctx context.Context, batch *models.BatchPayload) error {
	return c.do(ctx, &request{
		method:   http.MethodPost,
		path:     BatchPath,
		body:     batch,
		endpoint: "batch",
		authed:   true,
	}, nil)
}
