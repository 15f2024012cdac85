// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package api is the local HTTP bridge between the host reader and the
// sync engine. Hosts that cannot link Go code post their document
// lifecycle events here and drive manual actions (sync, re-match,
// extraction, match confirmation) from their own UI.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/folio/internal/config"
)

// NewRouter builds the bridge routes.
func NewRouter(h *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Use(Metrics)

		r.Route("/events", func(r chi.Router) {
			r.Post("/opened", h.DocumentOpened)
			r.Post("/closed", h.DocumentClosed)
			r.Post("/suspend", h.Suspend)
			r.Post("/resume", h.Resume)
			r.Post("/network", h.Network)
		})

		r.Post("/sync", h.Sync)
		r.Post("/resync", h.Resync)
		r.Post("/rematch", h.Rematch)
		r.Post("/extract", h.Extract)
		r.Delete("/tasks", h.CancelTasks)
		r.Delete("/queue", h.ClearQueue)

		r.Get("/status", h.Status)
		r.Post("/connection/test", h.TestConnection)

		r.Route("/matches", func(r chi.Router) {
			r.Get("/candidates", h.Candidates)
			r.Post("/confirm", h.ConfirmMatch)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})
	return r
}
