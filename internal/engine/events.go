// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
	"github.com/tomtom215/folio/internal/validation"
)

// SessionEvents is the host document lifecycle.
type SessionEvents interface {
	OnDocumentOpened(ctx context.Context, doc *models.Document) error
	OnDocumentClosed(ctx context.Context, pos models.Position, opts EndOptions) (*CloseResult, error)
	OnSuspend(ctx context.Context, pos models.Position) error
	OnResume(ctx context.Context, pos models.Position) error
}

var _ SessionEvents = (*Engine)(nil)

// EndOptions tune what happens after a session is closed.
type EndOptions struct {
	// Silent keeps the opportunistic pass out of the result and logs it at debug.
	Silent bool
	// ForceQueue only queues the session; no sync pass follows.
	ForceQueue bool
}

// CloseResult is the outcome of closing a document.
type CloseResult struct {
	Queued    bool   `json:"queued"`
	PendingID int64  `json:"pending_id,omitempty"`
	Discarded string `json:"discarded,omitempty"`

	// Sync is the opportunistic pass that followed, if any.
	Sync *SyncReport `json:"sync,omitempty"`
}

// suspendedDocument remembers the open document across a suspend.
type suspendedDocument struct {
	doc models.Document
}

// ErrNoActiveSession is returned when a close arrives without an open document.
var ErrNoActiveSession = errors.New("no active session")

// OnDocumentOpened starts tracking doc. A session still open for another
// document is dropped.
func (e *Engine) OnDocumentOpened(ctx context.Context, doc *models.Document) error {
	if err := validation.ValidateStruct(doc); err != nil {
		return syncerr.Validation("document opened", err.Error())
	}
	if e.active != nil {
		logging.Ctx(ctx).Warn().
			Str("locator", e.active.Locator).
			Msg("Previous session dropped without a close event")
	}
	e.suspended = nil
	e.active = e.tracker.Begin(ctx, doc, e.now())
	e.openDoc = *doc
	return nil
}

// OnDocumentClosed ends the active session. A valid session is always
// queued first; a failure to store it is the one error returned.
func (e *Engine) OnDocumentClosed(ctx context.Context, pos models.Position, opts EndOptions) (*CloseResult, error) {
	if e.active == nil {
		return nil, ErrNoActiveSession
	}
	if err := validation.ValidateStruct(&pos); err != nil {
		return nil, syncerr.Validation("document closed", err.Error())
	}
	active := e.active
	e.active = nil

	end, err := e.tracker.End(ctx, active, pos, e.now())
	if err != nil {
		return nil, err
	}
	result := &CloseResult{Queued: end.Queued, PendingID: end.PendingID, Discarded: end.Reason}

	if !end.Queued || opts.ForceQueue || !e.autoSync() {
		return result, nil
	}

	report, err := e.SyncPending(ctx)
	log := logging.Ctx(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		log.Debug().Msg("Opportunistic sync skipped, engine busy")
	case err != nil:
		log.Warn().Err(err).Msg("Opportunistic sync failed")
	case opts.Silent:
		log.Debug().Int("synced", report.Synced).Msg("Opportunistic sync finished")
	default:
		result.Sync = report
	}
	return result, nil
}

// OnSuspend closes the active session without syncing and remembers the
// document so that OnResume can start a new session for it.
func (e *Engine) OnSuspend(ctx context.Context, pos models.Position) error {
	if e.active == nil {
		return nil
	}
	doc := e.openDoc
	if _, err := e.OnDocumentClosed(ctx, pos, EndOptions{Silent: true, ForceQueue: true}); err != nil {
		return err
	}
	e.suspended = &suspendedDocument{doc: doc}
	return nil
}

// OnResume restarts tracking of the document open at suspend time and, when
// configured, runs a sync pass.
func (e *Engine) OnResume(ctx context.Context, pos models.Position) error {
	if s := e.suspended; s != nil {
		e.suspended = nil
		doc := s.doc
		doc.Position = pos
		if err := e.OnDocumentOpened(ctx, &doc); err != nil {
			return err
		}
	}

	if !e.cfg.Tracking.SyncOnResume || !e.autoSync() {
		return nil
	}
	if _, err := e.SyncPending(ctx); err != nil && !errors.Is(err, ErrBusy) {
		logging.Ctx(ctx).Warn().Err(err).Msg("Sync on resume failed")
	}
	return nil
}

// ActiveSession returns the open session, or nil.
func (e *Engine) ActiveSession() *models.ActiveSession {
	return e.active
}
