// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import "github.com/tomtom215/folio/internal/models"

// DocumentClosedRequest is the body of POST /v1/events/closed.
type DocumentClosedRequest struct {
	Position models.Position `json:"position"`

	// Silent keeps the opportunistic sync report out of the response.
	Silent bool `json:"silent"`

	// ForceQueue only queues the session.
	ForceQueue bool `json:"force_queue"`
}

// NetworkRequest is the body of POST /v1/events/network.
type NetworkRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// ConfirmMatchRequest is the body of POST /v1/matches/confirm.
type ConfirmMatchRequest struct {
	Locator string `json:"locator" validate:"required,max=4096"`
	BookID  int64  `json:"book_id" validate:"gt=0"`
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// EventResponse acknowledges a lifecycle event.
type EventResponse struct {
	Event  string                `json:"event"`
	Active *models.ActiveSession `json:"active,omitempty"`
}

// CountResponse reports how many items an operation affected.
type CountResponse struct {
	Count int64 `json:"count"`
}
