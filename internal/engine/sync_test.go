// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/models"
)

func TestSyncPending_ResolvesAndBatches(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Sync.PageSize = 500 })
	h.remote.byHash["h1"] = 42
	h.remote.known[42] = true
	h.enqueue(t, "h1", nil, 150)

	report, err := h.engine.SyncPending(context.Background())
	if err != nil {
		t.Fatalf("SyncPending: %v", err)
	}
	if report.Synced != 150 || report.Remaining != 0 {
		t.Errorf("report = %+v", report)
	}
	batch, single := h.remote.calls()
	if batch != 2 || single != 0 {
		t.Errorf("calls = %d batch / %d single, want 2 / 0", batch, single)
	}
	if h.remote.hashLookups != 1 {
		t.Errorf("hash lookups = %d, want 1 per pass", h.remote.hashLookups)
	}
	if stats := h.historicalStats(t); stats.Total != 150 || stats.Synced != 150 {
		t.Errorf("historical = %+v", stats)
	}
}

func TestSyncPending_PageSizeBoundsPass(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Sync.PageSize = 100 })
	h.remote.known[42] = true
	h.enqueue(t, "h1", models.Int64Ptr(42), 130)

	report, err := h.engine.SyncPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Attempted != 100 || report.Remaining != 30 {
		t.Errorf("report = %+v, want 100 attempted / 30 remaining", report)
	}
}

func TestSyncPending_NeverDropsUnresolvable(t *testing.T) {
	h := newHarness(t, nil)
	h.enqueue(t, "unknown", nil, 2)
	ctx := context.Background()

	for pass := 1; pass <= 3; pass++ {
		report, err := h.engine.SyncPending(ctx)
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if report.Unresolved != 2 || report.Synced != 0 {
			t.Errorf("pass %d report = %+v", pass, report)
		}
	}

	rows := h.pending(t)
	if len(rows) != 2 {
		t.Fatalf("pending = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.RetryCount != 3 || r.LastRetryAt == nil {
			t.Errorf("row %d retry = %d/%v, want 3", r.ID, r.RetryCount, r.LastRetryAt)
		}
	}
	if batch, single := h.remote.calls(); batch+single != 0 {
		t.Errorf("unresolved rows were uploaded")
	}
}

func TestSyncPending_BookGoneBecomesUnresolved(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if err := h.db.UpsertIdentity(ctx, &models.IdentityCacheEntry{
		Locator:      "/books/gone.epub",
		ContentHash:  models.StringPtr("h9"),
		RemoteBookID: models.Int64Ptr(99),
	}); err != nil {
		t.Fatal(err)
	}
	h.enqueue(t, "h9", models.Int64Ptr(99), 1)

	report, err := h.engine.SyncPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Unmatched != 1 {
		t.Fatalf("report = %+v, want 1 unmatched", report)
	}

	rows := h.pending(t)
	if len(rows) != 1 || rows[0].BookID != nil || rows[0].RetryCount != 1 {
		t.Errorf("pending = %+v, want one row without book id", rows)
	}
	entry, err := h.db.IdentityByLocator(ctx, "/books/gone.epub")
	if err != nil {
		t.Fatal(err)
	}
	if entry.RemoteBookID != nil {
		t.Errorf("cached remote id = %d, want forgotten", *entry.RemoteBookID)
	}
}

func TestSyncPending_BatchFallbackSplitsOutcomes(t *testing.T) {
	h := newHarness(t, nil)
	h.enqueue(t, "h7", models.Int64Ptr(7), 3)

	report, err := h.engine.SyncPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	batch, single := h.remote.calls()
	if batch != 1 || single != 3 || report.FallbackCalls != 3 {
		t.Errorf("calls = %d/%d fallback %d, want 1/3/3", batch, single, report.FallbackCalls)
	}
	if report.Unmatched+report.Synced+report.Failed != 3 {
		t.Errorf("outcomes do not cover every session: %+v", report)
	}
}

func TestSyncPending_RepeatedPassesNoDuplicates(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.known[42] = true
	h.enqueue(t, "h1", models.Int64Ptr(42), 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.engine.SyncPending(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if stats := h.historicalStats(t); stats.Total != 5 {
		t.Errorf("historical rows = %d, want 5", stats.Total)
	}
}

func TestSyncPending_Offline(t *testing.T) {
	h := newHarness(t, nil)
	h.enqueue(t, "h1", models.Int64Ptr(42), 2)
	h.engine.SetOnline(context.Background(), false)

	report, err := h.engine.SyncPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Skipped || report.Remaining != 2 {
		t.Errorf("report = %+v, want skipped with 2 remaining", report)
	}
	for _, r := range h.pending(t) {
		if r.RetryCount != 0 {
			t.Error("offline pass must not count as a retry")
		}
	}
}

func TestGuardedOperations_Busy(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Extract.StatsDBPath = "unused.sqlite3" })
	h.engine.state = StateMatching
	ctx := context.Background()

	if _, err := h.engine.SyncPending(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("SyncPending err = %v, want ErrBusy", err)
	}
	if _, err := h.engine.ResyncHistorical(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("ResyncHistorical err = %v, want ErrBusy", err)
	}
	if _, err := h.engine.ClearQueue(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("ClearQueue err = %v, want ErrBusy", err)
	}
	if _, err := h.engine.RematchHistorical(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("RematchHistorical err = %v, want ErrBusy", err)
	}
	if _, err := h.engine.ExtractHistory(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("ExtractHistory err = %v, want ErrBusy", err)
	}
}

func TestClearQueue(t *testing.T) {
	h := newHarness(t, nil)
	h.enqueue(t, "h1", nil, 4)

	n, err := h.engine.ClearQueue(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("ClearQueue = %d, %v; want 4", n, err)
	}
	if rows := h.pending(t); len(rows) != 0 {
		t.Errorf("pending = %d after clear", len(rows))
	}
	if h.engine.State() != StateIdle {
		t.Errorf("state = %v, want idle", h.engine.State())
	}
}

func TestNew_RequiresConfigAndDB(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("expected error without config")
	}
	if _, err := New(Deps{Config: config.Default(), DB: (*database.DB)(nil)}); err == nil {
		t.Error("expected error without database")
	}
}
