// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"net/http"
)

// Sync handles POST /v1/sync: one pass over the pending queue.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context) (any, error) {
		return h.engine.SyncPending(ctx)
	})
}

// Resync handles POST /v1/resync: uploads matched, unsynced archive rows.
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context) (any, error) {
		return h.engine.ResyncHistorical(ctx)
	})
}

// Rematch handles POST /v1/rematch. The work continues on the task queue;
// the response is the report at scheduling time.
func (h *Handler) Rematch(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context) (any, error) {
		return h.engine.RematchHistorical(ctx)
	})
}

// Extract handles POST /v1/extract.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context) (any, error) {
		return h.engine.ExtractHistory(ctx)
	})
}

// CancelTasks handles DELETE /v1/tasks.
func (h *Handler) CancelTasks(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context) (any, error) {
		return CountResponse{Count: int64(h.engine.CancelTasks(ctx))}, nil
	})
}

// ClearQueue handles DELETE /v1/queue.
func (h *Handler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context) (any, error) {
		n, err := h.engine.ClearQueue(ctx)
		if err != nil {
			return nil, err
		}
		return CountResponse{Count: n}, nil
	})
}
