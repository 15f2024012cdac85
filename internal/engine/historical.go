// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/hoststats"
	"github.com/tomtom215/folio/internal/identity"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
	"github.com/tomtom215/folio/internal/tasks"
	"github.com/tomtom215/folio/internal/upload"
)

// Task names.
const (
	TaskExtract = "extract-history"
	TaskRematch = "rematch-history"
)

// maxRematchBooks bounds the snapshot of unmatched books one re-match walks.
const maxRematchBooks = 10000

// ResyncHistorical uploads every matched, unsynced archive row.
func (e *Engine) ResyncHistorical(ctx context.Context) (*SyncReport, error) {
	if e.api == nil {
		return nil, syncerr.Validation("resync", "remote not configured")
	}
	if err := e.enter(StateSyncing); err != nil {
		return nil, err
	}
	defer e.leave()

	ctx = logging.ContextWithNewCorrelationID(ctx)
	report, err := e.resyncHistorical(ctx)
	metrics.RecordSyncPass(PassHistorical, report.Duration, err)
	if err != nil {
		return nil, err
	}
	e.lastSync = report
	return report, nil
}

func (e *Engine) resyncHistorical(ctx context.Context) (*SyncReport, error) {
	log := logging.Ctx(ctx)
	report := &SyncReport{Kind: PassHistorical, StartedAt: e.now()}
	defer func() { report.Duration = e.now().Sub(report.StartedAt) }()

	matched, synced := true, false
	rows, err := e.db.ListHistorical(ctx, models.HistoricalFilter{Matched: &matched, Synced: &synced})
	if err != nil {
		return report, syncerr.Storage("list historical", err)
	}
	report.Attempted = len(rows)
	if len(rows) == 0 {
		return report, nil
	}
	if !e.remoteUsable() {
		report.Skipped = true
		return report, nil
	}

	log.Info().Int("sessions", len(rows)).Msg("Historical resync started")

	groups := make(map[uploadKey][]models.HistoricalSession)
	var order []uploadKey
	for _, row := range rows {
		if row.BookID == nil {
			continue
		}
		key := uploadKey{bookID: *row.BookID, bookType: row.BookType}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	for _, key := range order {
		group := groups[key]
		if report.Error != "" {
			report.Failed += len(group)
			e.retryHistorical(ctx, ids(group))
			continue
		}

		payloads := make([]models.SessionPayload, len(group))
		for i := range group {
			payloads[i] = group[i].Payload(key.bookID)
		}
		rep := e.uploader.Upload(ctx, key.bookID, key.bookType, payloads)
		report.add(rep)

		var syncedIDs, unmatchedIDs, failedIDs []int64
		var deadHashes []string
		for i, outcome := range rep.Outcomes {
			switch outcome {
			case upload.Synced:
				syncedIDs = append(syncedIDs, group[i].ID)
			case upload.Unmatched:
				unmatchedIDs = append(unmatchedIDs, group[i].ID)
				if !slices.Contains(deadHashes, group[i].BookHash) {
					deadHashes = append(deadHashes, group[i].BookHash)
				}
			default:
				failedIDs = append(failedIDs, group[i].ID)
			}
		}
		report.Synced += len(syncedIDs)
		report.Unmatched += len(unmatchedIDs)
		report.Failed += len(failedIDs)

		if err := e.db.MarkHistoricalSynced(ctx, syncedIDs); err != nil {
			log.Error().Err(err).Int("sessions", len(syncedIDs)).Msg("Failed to mark sessions synced")
		}
		if len(unmatchedIDs) > 0 {
			if err := e.db.MarkHistoricalUnmatched(ctx, unmatchedIDs); err != nil {
				log.Error().Err(err).Msg("Failed to mark sessions unmatched")
			}
			// A group can hold several documents matched to the same id.
			for _, hash := range deadHashes {
				if err := e.resolver.Forget(ctx, hash); err != nil {
					log.Error().Err(err).Str("book_hash", hash).Msg("Failed to forget remote book id")
				}
			}
		}
		e.retryHistorical(ctx, failedIDs)
	}

	log.Info().
		Int("synced", report.Synced).
		Int("unmatched", report.Unmatched).
		Int("failed", report.Failed).
		Msg("Historical resync finished")
	return report, nil
}

func (e *Engine) retryHistorical(ctx context.Context, rowIDs []int64) {
	if len(rowIDs) == 0 {
		return
	}
	if err := e.db.IncrementHistoricalRetry(ctx, rowIDs, e.now()); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to record historical retry")
	}
}

func ids(rows []models.HistoricalSession) []int64 {
	out := make([]int64, len(rows))
	for i := range rows {
		out[i] = rows[i].ID
	}
	return out
}

// RematchReport summarises a re-match run.
type RematchReport struct {
	Books     int       `json:"books"`
	Checked   int       `json:"checked"`
	Matched   int       `json:"matched"`
	Sessions  int64     `json:"sessions"`
	StartedAt time.Time `json:"started_at"`
	Finished  bool      `json:"finished"`
	Canceled  bool      `json:"canceled,omitempty"`

	// Sync is the automatic upload of the newly matched rows.
	Sync *SyncReport `json:"sync,omitempty"`
}

// LastRematch returns the most recent re-match report, or nil.
func (e *Engine) LastRematch() *RematchReport {
	return e.lastRematch
}

// RematchHistorical schedules resolution of every archived book that has
// no remote id. The work runs books_per_tick books per task-queue tick and
// ends with an upload of the newly matched rows.
func (e *Engine) RematchHistorical(ctx context.Context) (*RematchReport, error) {
	if e.state != StateIdle {
		return nil, ErrBusy
	}
	books, err := e.db.ListUnmatchedBooks(ctx, maxRematchBooks)
	if err != nil {
		return nil, syncerr.Storage("list unmatched books", err)
	}
	report := &RematchReport{Books: len(books), StartedAt: e.now()}
	e.lastRematch = report
	if len(books) == 0 {
		report.Finished = true
		return report, nil
	}
	if err := e.enter(StateMatching); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Int("books", len(books)).Msg("Re-match scheduled")

	next := 0
	e.tasks.Enqueue(&tasks.Task{
		Name: TaskRematch,
		Step: func(ctx context.Context) (bool, error) {
			end := min(next+e.cfg.Extract.BooksPerTick, len(books))
			for ; next < end; next++ {
				e.rematchBook(ctx, &books[next], report)
			}
			return next >= len(books), nil
		},
		Done: func(ctx context.Context, err error) {
			e.finishRematch(ctx, report, err)
		},
	})
	return report, nil
}

func (e *Engine) rematchBook(ctx context.Context, book *database.UnmatchedBook, report *RematchReport) {
	log := logging.Ctx(ctx)
	report.Checked++

	bookID, err := e.resolver.ResolveCached(ctx, book.BookHash, "")
	if err != nil {
		log.Warn().Err(err).Str("book_hash", book.BookHash).Msg("Cache lookup failed")
		return
	}
	if bookID == nil && e.remoteUsable() {
		res, err := e.resolver.Resolve(ctx, &identity.Request{
			Hash:   book.BookHash,
			Title:  book.Title,
			Online: true,
		})
		if err != nil {
			log.Debug().Err(err).Str("book_hash", book.BookHash).Msg("Remote lookup failed")
		}
		if res.Resolved() {
			bookID = res.BookID
		}
	}
	if bookID == nil {
		return
	}

	n, err := e.db.MatchHistoricalByHash(ctx, book.BookHash, *bookID)
	if err != nil {
		log.Error().Err(err).Str("book_hash", book.BookHash).Msg("Failed to match archive rows")
		return
	}
	if _, err := e.db.AssignBookIDForHash(ctx, book.BookHash, *bookID); err != nil {
		log.Warn().Err(err).Str("book_hash", book.BookHash).Msg("Failed to resolve queued rows")
	}
	report.Matched++
	report.Sessions += n
	log.Debug().Str("book_hash", book.BookHash).Int64("book_id", *bookID).Int64("sessions", n).Msg("Book matched")
}

func (e *Engine) finishRematch(ctx context.Context, report *RematchReport, err error) {
	e.leave()
	report.Finished = err == nil
	report.Canceled = errors.Is(err, tasks.ErrCanceled)

	logging.Ctx(ctx).Info().
		Int("checked", report.Checked).
		Int("matched", report.Matched).
		Int64("sessions", report.Sessions).
		Bool("canceled", report.Canceled).
		Msg("Re-match finished")

	if err != nil || report.Sessions == 0 || e.cfg.Tracking.ManualOnly || e.api == nil {
		return
	}
	resync, err := e.ResyncHistorical(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Sync after re-match failed")
		return
	}
	report.Sync = resync
}

// ExtractHistory schedules reconstruction of sessions from the host
// statistics store. Each task-queue tick processes books_per_tick books.
func (e *Engine) ExtractHistory(ctx context.Context) (*hoststats.ProgressSummary, error) {
	path := e.cfg.Extract.StatsDBPath
	if path == "" {
		return nil, syncerr.Validation("extract", "extract.stats_db_path is not set")
	}
	if e.state != StateIdle {
		return nil, ErrBusy
	}

	reader, err := e.openStats(path)
	if err != nil {
		return nil, syncerr.Storage("open host statistics", err)
	}
	x := hoststats.NewExtractor(reader, e.db, e.resolver, e.cfg.Extract.Gap)
	if err := x.Begin(ctx); err != nil {
		_ = reader.Close()
		return nil, syncerr.Storage("count host books", err)
	}
	if err := e.enter(StateScanning); err != nil {
		_ = reader.Close()
		return nil, err
	}
	e.extractor = x

	e.tasks.Enqueue(&tasks.Task{
		Name: TaskExtract,
		Step: func(ctx context.Context) (bool, error) {
			return x.Step(ctx, e.cfg.Extract.BooksPerTick)
		},
		Done: func(ctx context.Context, err error) {
			e.leave()
			if cerr := reader.Close(); cerr != nil {
				logging.Ctx(ctx).Warn().Err(cerr).Msg("Failed to close host statistics")
			}
			if err != nil {
				x.Stop()
				logging.Ctx(ctx).Warn().Err(err).Msg("History extraction stopped")
			}
		},
	})

	stats := x.Stats()
	return stats.ToSummary(x.IsRunning()), nil
}

// Extraction returns the progress of the current or last extraction, or nil.
func (e *Engine) Extraction() *hoststats.ProgressSummary {
	if e.extractor == nil {
		return nil
	}
	stats := e.extractor.Stats()
	return stats.ToSummary(e.extractor.IsRunning())
}
