// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package segment

import (
	"context"
	"time"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/identity"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

// Discard reasons.
const (
	ReasonTooShort    = "too_short"
	ReasonNoPages     = "no_pages"
	ReasonTooFewPages = "too_few_pages"
)

// Resolver is the identity cascade used at Begin.
type Resolver interface {
	Resolve(ctx context.Context, req *identity.Request) (*identity.Result, error)
	Remember(ctx context.Context, req *identity.Request) error
}

// Queue stores finished sessions. *database.DB implements it.
type Queue interface {
	EnqueuePending(ctx context.Context, s *models.PendingSession) (int64, error)
}

// Deps are the Tracker's collaborators.
type Deps struct {
	Resolver    Resolver
	Queue       Queue
	Fingerprint func(path string) (string, error)
	// Online reports whether remote lookups may be attempted.
	Online func() bool
}

// Tracker segments live reading into sessions.
type Tracker struct {
	cfg  config.TrackingConfig
	deps Deps
}

// NewTracker creates a tracker.
func NewTracker(cfg config.TrackingConfig, deps Deps) *Tracker {
	if deps.Fingerprint == nil {
		deps.Fingerprint = identity.Fingerprint
	}
	if deps.Online == nil {
		deps.Online = func() bool { return true }
	}
	return &Tracker{cfg: cfg, deps: deps}
}

// Begin starts a session for doc. Identity resolution is best effort; its
// failures are logged and leave the session unresolved. Nothing is persisted
// except what is learned about the document's identity.
func (t *Tracker) Begin(ctx context.Context, doc *models.Document, openedAt time.Time) *models.ActiveSession {
	log := logging.Ctx(ctx)
	pos := doc.Position.Normalized()

	active := &models.ActiveSession{
		Locator:       doc.Locator,
		Title:         doc.Title,
		StartTime:     openedAt,
		StartProgress: pos.Progress,
		StartLocation: pos.Location,
		StartPage:     pos.Page,
		BookType:      doc.Type(),
	}

	hash, err := t.deps.Fingerprint(doc.Locator)
	if err != nil || hash == "" {
		hash = identity.LocatorHash(doc.Locator)
		log.Warn().Err(err).
			Str("locator", doc.Locator).
			Str("book_hash", hash).
			Msg("Could not fingerprint document, using locator hash")
	}
	active.ContentHash = hash

	if t.deps.Resolver == nil {
		return active
	}

	req := &identity.Request{
		Locator: doc.Locator,
		Hash:    hash,
		Title:   doc.Title,
		Author:  doc.Author,
		ISBN10:  doc.ISBN10,
		ISBN13:  doc.ISBN13,
		Online:  t.deps.Online(),
	}
	res, err := t.deps.Resolver.Resolve(ctx, req)
	if err != nil {
		log.Debug().Err(err).Str("locator", doc.Locator).Msg("Identity resolution deferred")
	}
	if res.Resolved() {
		active.ResolvedBookID = res.BookID
	}
	if err := t.deps.Resolver.Remember(ctx, req); err != nil {
		log.Warn().Err(err).Msg("Failed to record document identity")
	}

	log.Debug().
		Str("locator", doc.Locator).
		Str("book_hash", hash).
		Bool("resolved", active.ResolvedBookID != nil).
		Msg("Session started")
	return active
}

// EndResult describes what happened to a finished session.
type EndResult struct {
	Queued    bool
	PendingID int64
	// Reason is set when the session was discarded.
	Reason  string
	Session *models.PendingSession
}

// Rejection returns the discard as a validation error, or nil if queued.
func (r *EndResult) Rejection() error {
	if r.Queued {
		return nil
	}
	return syncerr.Validation("end session", r.Reason)
}

// End closes active at pos. Valid sessions are always written to the queue;
// a storage failure is returned. Invalid sessions are discarded with a reason
// and no error.
func (t *Tracker) End(ctx context.Context, active *models.ActiveSession, pos models.Position, closedAt time.Time) (*EndResult, error) {
	pos = pos.Normalized()
	duration := closedAt.Sub(active.StartTime)
	pagesRead := pos.Page - active.StartPage
	if pagesRead < 0 {
		pagesRead = -pagesRead
	}

	if reason := t.validate(duration, pagesRead); reason != "" {
		metrics.SessionsDiscarded.WithLabelValues(reason).Inc()
		logging.Ctx(ctx).Info().
			Str("locator", active.Locator).
			Str("reason", reason).
			Dur("duration", duration).
			Int("pages_read", pagesRead).
			Msg("Session discarded")
		return &EndResult{Reason: reason}, nil
	}

	session := &models.PendingSession{
		BookID:          active.ResolvedBookID,
		BookHash:        active.ContentHash,
		BookTitle:       active.Title,
		BookType:        active.BookType,
		StartTime:       active.StartTime,
		EndTime:         closedAt,
		DurationSeconds: int64(duration / time.Second),
		StartProgress:   active.StartProgress,
		EndProgress:     pos.Progress,
		ProgressDelta:   pos.Progress - active.StartProgress,
		StartLocation:   active.StartLocation,
		EndLocation:     pos.Location,
	}

	id, err := t.deps.Queue.EnqueuePending(ctx, session)
	if err != nil {
		return nil, syncerr.Storage("queue session", err)
	}
	session.ID = id
	metrics.SessionsQueued.Inc()

	logging.Ctx(ctx).Info().
		Int64("pending_id", id).
		Str("book_hash", session.BookHash).
		Int64("duration_seconds", session.DurationSeconds).
		Int("pages_read", pagesRead).
		Msg("Session queued")
	return &EndResult{Queued: true, PendingID: id, Session: session}, nil
}

// validate returns a discard reason, or "" for a valid session.
func (t *Tracker) validate(duration time.Duration, pagesRead int) string {
	if t.cfg.ValidationMode == config.ValidationModePages {
		if pagesRead < t.cfg.MinPages {
			return ReasonTooFewPages
		}
		return ""
	}
	if duration < t.cfg.MinDuration || duration <= 0 {
		return ReasonTooShort
	}
	if pagesRead == 0 {
		return ReasonNoPages
	}
	return ""
}
