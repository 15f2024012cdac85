// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"net/http"
)

// Candidates handles GET /v1/matches/candidates?locator=.
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	locator := r.URL.Query().Get("locator")
	if locator == "" {
		NewResponseWriter(w, r).BadRequest("locator query parameter is required")
		return
	}
	h.run(w, r, func(ctx context.Context) (any, error) {
		return h.engine.Candidates(ctx, locator)
	})
}

// ConfirmMatch handles POST /v1/matches/confirm.
func (h *Handler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	var req ConfirmMatchRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, func(ctx context.Context) (any, error) {
		return h.engine.ConfirmMatch(ctx, req.Locator, req.BookID)
	})
}

// Status handles GET /v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context) (any, error) {
		return h.engine.Status(ctx)
	})
}

// TestConnection handles POST /v1/connection/test. A failed check is still
// a 200: the report carries the reason.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context) (any, error) {
		report, err := h.engine.TestConnection(ctx)
		if report != nil {
			return report, nil
		}
		return nil, err
	})
}
