// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/folio/internal/engine"
	"github.com/tomtom215/folio/internal/models"
)

// DocumentOpened handles POST /v1/events/opened.
func (h *Handler) DocumentOpened(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	if !decode(w, r, &doc) {
		return
	}
	h.run(w, r, func(ctx context.Context) (any, error) {
		if err := h.engine.OnDocumentOpened(ctx, &doc); err != nil {
			return nil, err
		}
		return EventResponse{Event: "opened", Active: h.engine.ActiveSession()}, nil
	})
}

// DocumentClosed handles POST /v1/events/closed.
func (h *Handler) DocumentClosed(w http.ResponseWriter, r *http.Request) {
	var req DocumentClosedRequest
	if !decode(w, r, &req) {
		return
	}
	opts := engine.EndOptions{Silent: req.Silent, ForceQueue: req.ForceQueue}
	h.run(w, r, func(ctx context.Context) (any, error) {
		return h.engine.OnDocumentClosed(ctx, req.Position, opts)
	})
}

// Suspend handles POST /v1/events/suspend.
func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	var pos models.Position
	if !decode(w, r, &pos) {
		return
	}
	h.run(w, r, func(ctx context.Context) (any, error) {
		if err := h.engine.OnSuspend(ctx, pos); err != nil {
			return nil, err
		}
		return EventResponse{Event: "suspend"}, nil
	})
}

// Resume handles POST /v1/events/resume.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	var pos models.Position
	if !decode(w, r, &pos) {
		return
	}
	h.run(w, r, func(ctx context.Context) (any, error) {
		if err := h.engine.OnResume(ctx, pos); err != nil {
			return nil, err
		}
		return EventResponse{Event: "resume", Active: h.engine.ActiveSession()}, nil
	})
}

// Network handles POST /v1/events/network.
func (h *Handler) Network(w http.ResponseWriter, r *http.Request) {
	var req NetworkRequest
	if !decode(w, r, &req) {
		return
	}
	h.run(w, r, func(ctx context.Context) (any, error) {
		h.engine.SetOnline(ctx, *req.Online)
		return EventResponse{Event: "network"}, nil
	})
}
