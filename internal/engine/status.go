// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"

	"github.com/tomtom215/folio/internal/hoststats"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

// Status is a snapshot of the engine for the host UI.
type Status struct {
	State      string                     `json:"state"`
	Online     bool                       `json:"online"`
	Remote     bool                       `json:"remote_configured"`
	ManualOnly bool                       `json:"manual_only"`
	Pending    int                        `json:"pending"`
	Historical models.HistoricalStats     `json:"historical"`
	Identities int                        `json:"identities"`
	Active     *models.ActiveSession      `json:"active,omitempty"`
	Tasks      []string                   `json:"tasks"`
	LastSync   *SyncReport                `json:"last_sync,omitempty"`
	Rematch    *RematchReport             `json:"rematch,omitempty"`
	Extraction *hoststats.ProgressSummary `json:"extraction,omitempty"`
}

// Status collects counts from the store and the engine's own state.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	pending, err := e.db.CountPending(ctx)
	if err != nil {
		return nil, syncerr.Storage("status", err)
	}
	hist, err := e.db.GetHistoricalStats(ctx)
	if err != nil {
		return nil, syncerr.Storage("status", err)
	}
	identities, err := e.db.CountIdentities(ctx)
	if err != nil {
		return nil, syncerr.Storage("status", err)
	}

	return &Status{
		State:      e.state.String(),
		Online:     e.online,
		Remote:     e.api != nil,
		ManualOnly: e.cfg.Tracking.ManualOnly,
		Pending:    pending,
		Historical: hist,
		Identities: identities,
		Active:     e.active,
		Tasks:      e.tasks.Names(),
		LastSync:   e.lastSync,
		Rematch:    e.lastRematch,
		Extraction: e.Extraction(),
	}, nil
}

// ConnectionReport is the result of TestConnection.
type ConnectionReport struct {
	Reachable     bool   `json:"reachable"`
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message"`
}

// TestConnection checks that the server answers and accepts the configured
// credentials. Unlike sync passes it reports failures to the caller.
func (e *Engine) TestConnection(ctx context.Context) (*ConnectionReport, error) {
	if e.api == nil {
		return nil, syncerr.Validation("test connection", "remote.url is not set")
	}
	report := &ConnectionReport{}
	log := logging.Ctx(ctx)

	if err := e.api.Health(ctx); err != nil {
		report.Message = "Server unreachable: " + describe(err)
		log.Warn().Err(err).Msg("Connection test failed")
		return report, err
	}
	report.Reachable = true

	if err := e.api.CheckAuth(ctx); err != nil {
		report.Message = "Server reachable, credentials rejected: " + describe(err)
		log.Warn().Err(err).Msg("Credential check failed")
		return report, err
	}
	report.Authenticated = true
	report.Message = "Connected"
	log.Info().Msg("Connection test succeeded")
	return report, nil
}

// describe turns an error into a short user-facing reason.
func describe(err error) string {
	var se *syncerr.Error
	if !errors.As(err, &se) {
		return err.Error()
	}
	switch se.Kind {
	case syncerr.KindOffline:
		return "no connection"
	case syncerr.KindAuth:
		return "authentication failed"
	case syncerr.KindPermission:
		return "permission denied"
	case syncerr.KindAmbiguousNotFound:
		return "endpoint not found"
	case syncerr.KindServer:
		return "server error"
	default:
		return se.Error()
	}
}
