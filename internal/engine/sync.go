// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"time"

	"github.com/tomtom215/folio/internal/identity"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
	"github.com/tomtom215/folio/internal/upload"
)

// Sync pass kinds.
const (
	PassPending    = "pending"
	PassHistorical = "historical"
)

// SyncReport summarises one sync pass.
type SyncReport struct {
	Kind      string        `json:"kind"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Attempted  int `json:"attempted"`
	Synced     int `json:"synced"`
	Unmatched  int `json:"unmatched"`
	Failed     int `json:"failed"`
	Unresolved int `json:"unresolved"`

	Calls         int `json:"calls"`
	FallbackCalls int `json:"fallback_calls"`

	// Remaining is the queue length after the pass.
	Remaining int `json:"remaining"`

	// Skipped is set when the pass made no remote calls because the host is offline.
	Skipped bool `json:"skipped,omitempty"`

	// Error describes a failure that ended the pass early; the affected
	// rows stay queued.
	Error string `json:"error,omitempty"`
}

func (r *SyncReport) add(rep *upload.Report) {
	r.Calls += rep.Calls
	r.FallbackCalls += rep.FallbackCalls
	if rep.Aborted != nil && r.Error == "" {
		r.Error = rep.Aborted.Error()
	}
}

// uploadKey groups sessions for one upload call.
type uploadKey struct {
	bookID   int64
	bookType string
}

// LastSync returns the report of the most recent pass, or nil.
func (e *Engine) LastSync() *SyncReport {
	return e.lastSync
}

// SyncPending drains up to sync.page_size queued sessions. Sessions without
// a book id are resolved first; unresolvable ones stay queued. Upload
// failures only bump retry counts, so the returned error is limited to the
// busy guard, a missing remote and local storage failures.
func (e *Engine) SyncPending(ctx context.Context) (*SyncReport, error) {
	if e.api == nil {
		return nil, syncerr.Validation("sync", "remote not configured")
	}
	if err := e.enter(StateSyncing); err != nil {
		return nil, err
	}
	defer e.leave()

	ctx = logging.ContextWithNewCorrelationID(ctx)
	report, err := e.syncPending(ctx)
	metrics.RecordSyncPass(PassPending, report.Duration, err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Sync pass failed")
		return nil, err
	}
	e.lastSync = report
	return report, nil
}

func (e *Engine) syncPending(ctx context.Context) (*SyncReport, error) {
	log := logging.Ctx(ctx)
	report := &SyncReport{Kind: PassPending, StartedAt: e.now()}
	defer func() { report.Duration = e.now().Sub(report.StartedAt) }()

	rows, err := e.db.ListPending(ctx, e.cfg.Sync.PageSize)
	if err != nil {
		return report, syncerr.Storage("list pending", err)
	}
	if len(rows) == 0 {
		metrics.PendingSessions.Set(0)
		return report, nil
	}
	report.Attempted = len(rows)

	if !e.remoteUsable() {
		report.Skipped = true
		report.Remaining = e.countPending(ctx)
		log.Info().Int("pending", report.Remaining).Msg("Offline, sync pass skipped")
		return report, nil
	}

	log.Info().Int("sessions", len(rows)).Msg("Sync pass started")

	groups, order, unresolved := e.groupPending(ctx, rows)
	for _, row := range unresolved {
		report.Unresolved++
		e.retryPending(ctx, row.ID)
	}

	aborted := false
	for _, key := range order {
		group := groups[key]
		if aborted {
			for _, row := range group {
				report.Failed++
				e.retryPending(ctx, row.ID)
			}
			continue
		}

		payloads := make([]models.SessionPayload, len(group))
		for i := range group {
			payloads[i] = group[i].Payload(key.bookID)
		}
		rep := e.uploader.Upload(ctx, key.bookID, key.bookType, payloads)
		report.add(rep)
		aborted = rep.Aborted != nil

		forgotten := make(map[string]bool)
		for i, outcome := range rep.Outcomes {
			row := &group[i]
			switch outcome {
			case upload.Synced:
				if err := e.db.ArchiveAndRemove(ctx, row.ID, e.now()); err != nil {
					// The row stays queued and is uploaded again next pass;
					// the archive's natural key absorbs the duplicate.
					log.Error().Err(err).Int64("pending_id", row.ID).Msg("Failed to archive synced session")
				}
				report.Synced++
			case upload.Unmatched:
				report.Unmatched++
				e.unmatchPending(ctx, row, forgotten)
			default:
				report.Failed++
				e.retryPending(ctx, row.ID)
			}
		}
	}

	report.Remaining = e.countPending(ctx)
	log.Info().
		Int("synced", report.Synced).
		Int("unmatched", report.Unmatched).
		Int("failed", report.Failed).
		Int("unresolved", report.Unresolved).
		Int("remaining", report.Remaining).
		Msg("Sync pass finished")
	return report, nil
}

// groupPending resolves missing book ids and groups rows by book.
// Resolution happens once per content hash.
func (e *Engine) groupPending(ctx context.Context, rows []models.PendingSession) (
	map[uploadKey][]models.PendingSession, []uploadKey, []models.PendingSession) {
	log := logging.Ctx(ctx)
	groups := make(map[uploadKey][]models.PendingSession)
	var (
		order      []uploadKey
		unresolved []models.PendingSession
	)
	resolved := make(map[string]*int64)

	for i := range rows {
		row := rows[i]
		if row.BookID == nil && row.BookHash != "" {
			id, seen := resolved[row.BookHash]
			if !seen {
				id = e.resolvePending(ctx, &row)
				resolved[row.BookHash] = id
				if id != nil {
					if _, err := e.db.AssignBookIDForHash(ctx, row.BookHash, *id); err != nil {
						log.Warn().Err(err).Str("book_hash", row.BookHash).Msg("Failed to store resolved book id")
					}
				}
			}
			row.BookID = id
		}
		if row.BookID == nil {
			unresolved = append(unresolved, row)
			continue
		}

		key := uploadKey{bookID: *row.BookID, bookType: row.BookType}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}
	return groups, order, unresolved
}

func (e *Engine) resolvePending(ctx context.Context, row *models.PendingSession) *int64 {
	res, err := e.resolver.Resolve(ctx, &identity.Request{
		Hash:   row.BookHash,
		Title:  row.BookTitle,
		Online: e.remoteUsable(),
	})
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("book_hash", row.BookHash).Msg("Book still unresolved")
	}
	if res.Resolved() {
		return res.BookID
	}
	return nil
}

// unmatchPending handles a session the server rejected as unknown: the book
// id is dropped from the row and from the identity cache so that the next
// pass resolves again.
func (e *Engine) unmatchPending(ctx context.Context, row *models.PendingSession, forgotten map[string]bool) {
	log := logging.Ctx(ctx)
	if err := e.db.ClearPendingBookID(ctx, row.ID); err != nil {
		log.Error().Err(err).Int64("pending_id", row.ID).Msg("Failed to clear book id")
	}
	if row.BookHash != "" && !forgotten[row.BookHash] {
		forgotten[row.BookHash] = true
		if err := e.resolver.Forget(ctx, row.BookHash); err != nil {
			log.Error().Err(err).Str("book_hash", row.BookHash).Msg("Failed to forget remote book id")
		}
	}
	e.retryPending(ctx, row.ID)
}

func (e *Engine) retryPending(ctx context.Context, id int64) {
	if err := e.db.IncrementRetry(ctx, id, e.now()); err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("pending_id", id).Msg("Failed to record retry")
	}
}

func (e *Engine) countPending(ctx context.Context) int {
	n, err := e.db.CountPending(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to count pending sessions")
		return 0
	}
	metrics.PendingSessions.Set(float64(n))
	return n
}

// ClearQueue deletes every pending session. It is an explicit user action.
func (e *Engine) ClearQueue(ctx context.Context) (int64, error) {
	if err := e.enter(StateSyncing); err != nil {
		return 0, err
	}
	defer e.leave()

	n, err := e.db.ClearPending(ctx)
	if err != nil {
		return 0, syncerr.Storage("clear queue", err)
	}
	metrics.PendingSessions.Set(0)
	logging.Ctx(ctx).Warn().Int64("removed", n).Msg("Pending queue cleared")
	return n, nil
}
