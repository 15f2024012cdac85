// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/folio/internal/models"
)

func samplePending(hash string, offset time.Duration) *models.PendingSession {
	start := testNow.Add(-time.Hour).Add(offset)
	return &models.PendingSession{
		BookHash:        hash,
		BookTitle:       "Sample",
		BookType:        "EPUB",
		StartTime:       start,
		EndTime:         start.Add(10 * time.Minute),
		DurationSeconds: 600,
		StartProgress:   10,
		EndProgress:     15,
		ProgressDelta:   5,
		StartLocation:   "10",
		EndLocation:     "15",
		CreatedAt:       testNow.Add(offset),
	}
}

func TestListPendingOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Insert out of creation order.
	for _, off := range []time.Duration{3 * time.Minute, time.Minute, 2 * time.Minute} {
		if _, err := db.EnqueuePending(ctx, samplePending("h", off)); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := db.ListPending(ctx, 2)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2 (limit)", len(rows))
	}
	if !rows[0].CreatedAt.Before(rows[1].CreatedAt) {
		t.Errorf("rows not ordered by created_at: %v, %v", rows[0].CreatedAt, rows[1].CreatedAt)
	}
	if !rows[0].CreatedAt.Equal(testNow.Add(time.Minute)) {
		t.Errorf("oldest row created_at = %v", rows[0].CreatedAt)
	}
}

func TestEnqueueRequiresHash(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.EnqueuePending(context.Background(), &models.PendingSession{}); err == nil {
		t.Error("expected error for empty hash")
	}
}

func TestIncrementRetryNeverDrops(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.EnqueuePending(ctx, samplePending("unresolvable", 0))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		if err := db.IncrementRetry(ctx, id, testNow.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("IncrementRetry() error = %v", err)
		}
	}

	rows, err := db.ListPending(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("pending rows = %d, want 1", len(rows))
	}
	if rows[0].RetryCount != 50 {
		t.Errorf("retry count = %d, want 50", rows[0].RetryCount)
	}
	if rows[0].LastRetryAt == nil || !rows[0].LastRetryAt.Equal(testNow.Add(49*time.Minute)) {
		t.Errorf("last retry = %v", rows[0].LastRetryAt)
	}
}

func TestArchiveAndRemove(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := samplePending("hash-a", 0)
	s.BookID = models.Int64Ptr(99)
	id, err := db.EnqueuePending(ctx, s)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.ArchiveAndRemove(ctx, id, testNow); err != nil {
		t.Fatalf("ArchiveAndRemove() error = %v", err)
	}

	if n, _ := db.CountPending(ctx); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
	hist, err := db.ListHistorical(ctx, models.HistoricalFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 {
		t.Fatalf("historical = %d, want 1", len(hist))
	}
	h := hist[0]
	if !h.Synced || !h.Matched {
		t.Errorf("archived row synced=%v matched=%v, want both true", h.Synced, h.Matched)
	}
	if h.SourceBookID != models.LiveSourceBookID {
		t.Errorf("source book id = %d, want live sentinel", h.SourceBookID)
	}
	if h.BookID == nil || *h.BookID != 99 {
		t.Errorf("book id = %v, want 99", h.BookID)
	}
	if h.SourceBookTitle != "Sample" {
		t.Errorf("source title = %q, want Sample", h.SourceBookTitle)
	}
}

func TestArchiveIsIdempotentOnNaturalKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// The same session queued twice (upload succeeded, archive lost, re-queued).
	for i := 0; i < 2; i++ {
		s := samplePending("dup", 0)
		s.BookID = models.Int64Ptr(1)
		id, err := db.EnqueuePending(ctx, s)
		if err != nil {
			t.Fatal(err)
		}
		if err := db.ArchiveAndRemove(ctx, id, testNow); err != nil {
			t.Fatalf("archive #%d: %v", i, err)
		}
		// A repeated archive call for a removed row is a no-op.
		if err := db.ArchiveAndRemove(ctx, id, testNow); err != nil {
			t.Fatalf("repeat archive #%d: %v", i, err)
		}
	}

	stats, err := db.GetHistoricalStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 {
		t.Errorf("historical rows = %d, want 1", stats.Total)
	}
	if n, _ := db.CountPending(ctx); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func TestPendingBookIDUpdates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a, _ := db.EnqueuePending(ctx, samplePending("same", 0))
	b, _ := db.EnqueuePending(ctx, samplePending("same", time.Minute))
	if _, err := db.EnqueuePending(ctx, samplePending("other", 2*time.Minute)); err != nil {
		t.Fatal(err)
	}

	n, err := db.AssignBookIDForHash(ctx, "same", 77)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("rows assigned = %d, want 2", n)
	}

	if err := db.ClearPendingBookID(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := db.SetPendingBookID(ctx, b, 78); err != nil {
		t.Fatal(err)
	}

	rows, err := db.ListPending(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	byID := map[int64]models.PendingSession{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	if byID[a].BookID != nil {
		t.Error("row a should have no book id")
	}
	if byID[b].BookID == nil || *byID[b].BookID != 78 {
		t.Errorf("row b book id = %v, want 78", byID[b].BookID)
	}
}

func TestClearPending(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := db.EnqueuePending(ctx, samplePending("h", time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := db.ClearPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("cleared = %d, want 3", n)
	}
}
