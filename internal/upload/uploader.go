// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package upload

import (
	"context"
	"fmt"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

// MaxBatchSize is the most sessions the batch endpoint accepts.
const MaxBatchSize = 100

// Outcome is the final state of one uploaded session.
type Outcome int

const (
	// Failed sessions stay queued and are retried on a later pass.
	Failed Outcome = iota
	// Synced sessions were accepted by the server.
	Synced
	// Unmatched sessions were rejected because the server does not know the book.
	Unmatched
)

// String returns the metric label of the outcome.
func (o Outcome) String() string {
	switch o {
	case Synced:
		return "synced"
	case Unmatched:
		return "unmatched"
	default:
		return "failed"
	}
}

// Submitter is the remote surface the uploader needs. remote.API satisfies it.
type Submitter interface {
	SubmitSession(ctx context.Context, session *models.SessionPayload) error
	SubmitBatch(ctx context.Context, batch *models.BatchPayload) error
}

// Report describes one Upload call.
type Report struct {
	// Outcomes is index-aligned with the uploaded sessions.
	Outcomes []Outcome

	// Calls counts every request sent, fallbacks included.
	Calls int

	// FallbackCalls counts per-session resubmissions after a batch 404.
	FallbackCalls int

	// Aborted is set when an offline or auth failure stopped the upload early.
	Aborted error
}

// Count returns how many sessions ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, got := range r.Outcomes {
		if got == o {
			n++
		}
	}
	return n
}

// Uploader implements the batch-with-fallback protocol.
type Uploader struct {
	api       Submitter
	batchSize int
}

// New creates an Uploader. batchSize outside 1..MaxBatchSize uses MaxBatchSize.
func New(api Submitter, batchSize int) *Uploader {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Uploader{api: api, batchSize: batchSize}
}

// Upload submits sessions that all belong to bookID.
func (u *Uploader) Upload(ctx context.Context, bookID int64, bookType string, sessions []models.SessionPayload) *Report {
	report := &Report{Outcomes: make([]Outcome, len(sessions))}
	if len(sessions) == 0 {
		return report
	}

	if len(sessions) == 1 {
		report.Outcomes[0] = u.submitOne(ctx, report, &sessions[0])
		u.record(report)
		return report
	}

	for start := 0; start < len(sessions); start += u.batchSize {
		if report.Aborted != nil {
			break
		}
		end := min(start+u.batchSize, len(sessions))
		u.submitChunk(ctx, report, bookID, bookType, sessions[start:end], report.Outcomes[start:end])
	}

	u.record(report)
	return report
}

func (u *Uploader) submitChunk(ctx context.Context, report *Report, bookID int64, bookType string,
	chunk []models.SessionPayload, outcomes []Outcome) {
	log := logging.Ctx(ctx)

	report.Calls++
	err := u.api.SubmitBatch(ctx, &models.BatchPayload{
		BookID:   bookID,
		BookType: bookType,
		Sessions: chunk,
	})
	switch {
	case err == nil:
		fill(outcomes, Synced)
		return
	case syncerr.Is(err, syncerr.KindAmbiguousNotFound):
		log.Info().Int64("book_id", bookID).Int("sessions", len(chunk)).
			Msg("Batch endpoint returned 404, falling back to single uploads")
	case syncerr.Is(err, syncerr.KindPermission):
		log.Warn().Err(err).Int64("book_id", bookID).Int("sessions", len(chunk)).
			Msg("Batch upload forbidden")
		fill(outcomes, Failed)
		return
	default:
		u.abortIfFatal(report, err)
		log.Warn().Err(err).Int64("book_id", bookID).Int("sessions", len(chunk)).
			Msg("Batch upload failed")
		fill(outcomes, Failed)
		return
	}

	for i := range chunk {
		if report.Aborted != nil {
			outcomes[i] = Failed
			continue
		}
		report.FallbackCalls++
		metrics.BatchFallbackCalls.Inc()
		outcomes[i] = u.submitOne(ctx, report, &chunk[i])
	}
}

func (u *Uploader) submitOne(ctx context.Context, report *Report, s *models.SessionPayload) Outcome {
	report.Calls++
	err := u.api.SubmitSession(ctx, s)
	switch {
	case err == nil:
		return Synced
	case syncerr.Is(err, syncerr.KindAmbiguousNotFound):
		return Unmatched
	default:
		u.abortIfFatal(report, err)
		logging.Ctx(ctx).Debug().Err(err).Int64("book_id", s.BookID).Msg("Session upload failed")
		return Failed
	}
}

// abortIfFatal stops the remaining chunks on failures every later call
// would repeat.
func (u *Uploader) abortIfFatal(report *Report, err error) {
	switch syncerr.KindOf(err) {
	case syncerr.KindOffline, syncerr.KindAuth:
		if report.Aborted == nil {
			report.Aborted = fmt.Errorf("upload aborted: %w", err)
		}
	}
}

func (u *Uploader) record(report *Report) {
	for _, o := range report.Outcomes {
		metrics.RecordUploadOutcome(o.String())
	}
}

func fill(outcomes []Outcome, o Outcome) {
	for i := range outcomes {
		outcomes[i] = o
	}
}
