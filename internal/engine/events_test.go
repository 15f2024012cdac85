// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/identity"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/segment"
	"github.com/tomtom215/folio/internal/syncerr"
)

func openDune(t *testing.T, h *harness) {
	t.Helper()
	h.hashes["/books/dune.epub"] = "h1"
	err := h.engine.OnDocumentOpened(context.Background(), &models.Document{
		Locator:  "/books/dune.epub",
		Title:    "Dune",
		Position: models.Position{Page: 10, TotalPages: 400},
	})
	if err != nil {
		t.Fatalf("OnDocumentOpened: %v", err)
	}
}

func TestOpenClose_QueuesThenSyncs(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.byHash["h1"] = 42
	h.remote.known[42] = true
	ctx := context.Background()

	openDune(t, h)
	active := h.engine.ActiveSession()
	if active == nil || active.ResolvedBookID == nil || *active.ResolvedBookID != 42 {
		t.Fatalf("active session not resolved: %+v", active)
	}

	h.clock.Advance(10 * time.Minute)
	res, err := h.engine.OnDocumentClosed(ctx, models.Position{Page: 25, TotalPages: 400}, EndOptions{})
	if err != nil {
		t.Fatalf("OnDocumentClosed: %v", err)
	}
	if !res.Queued {
		t.Fatalf("session not queued: %+v", res)
	}
	if res.Sync == nil || res.Sync.Synced != 1 {
		t.Fatalf("opportunistic sync = %+v, want 1 synced", res.Sync)
	}
	if rows := h.pending(t); len(rows) != 0 {
		t.Errorf("pending = %d, want 0", len(rows))
	}
	if stats := h.historicalStats(t); stats.Total != 1 || stats.Synced != 1 {
		t.Errorf("historical stats = %+v", stats)
	}

	got := h.remote.received[0]
	if got.BookID != 42 || got.DurationSeconds != 600 || got.StartLocation != "10" || got.EndLocation != "25" {
		t.Errorf("uploaded session = %+v", got)
	}
	if h.engine.ActiveSession() != nil {
		t.Error("active session survived close")
	}
}

func TestClose_Discards(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		after  time.Duration
		page   int
		reason string
	}{
		{"too short", config.ValidationModeDuration, 20 * time.Second, 30, segment.ReasonTooShort},
		{"no pages turned", config.ValidationModeDuration, 10 * time.Minute, 10, segment.ReasonNoPages},
		{"too few pages", config.ValidationModePages, 10 * time.Minute, 11, segment.ReasonTooFewPages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(cfg *config.Config) { cfg.Tracking.ValidationMode = tt.mode })
			openDune(t, h)
			h.clock.Advance(tt.after)

			res, err := h.engine.OnDocumentClosed(context.Background(),
				models.Position{Page: tt.page, TotalPages: 400}, EndOptions{})
			if err != nil {
				t.Fatalf("OnDocumentClosed: %v", err)
			}
			if res.Queued || res.Discarded != tt.reason {
				t.Errorf("result = %+v, want discarded %q", res, tt.reason)
			}
			if rows := h.pending(t); len(rows) != 0 {
				t.Errorf("pending = %d, want 0", len(rows))
			}
		})
	}
}

func TestClose_WithoutOpen(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.engine.OnDocumentClosed(context.Background(), models.Position{}, EndOptions{})
	if !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestClose_ForceQueueAndManualOnlySkipSync(t *testing.T) {
	tests := []struct {
		name   string
		manual bool
		opts   EndOptions
	}{
		{"force queue", false, EndOptions{ForceQueue: true}},
		{"manual only", true, EndOptions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(cfg *config.Config) { cfg.Tracking.ManualOnly = tt.manual })
			h.remote.byHash["h1"] = 42
			h.remote.known[42] = true

			openDune(t, h)
			h.clock.Advance(5 * time.Minute)
			res, err := h.engine.OnDocumentClosed(context.Background(),
				models.Position{Page: 20, TotalPages: 400}, tt.opts)
			if err != nil {
				t.Fatalf("OnDocumentClosed: %v", err)
			}
			if !res.Queued || res.Sync != nil {
				t.Errorf("result = %+v, want queued without sync", res)
			}
			if batch, single := h.remote.calls(); batch+single != 0 {
				t.Errorf("upload calls = %d, want 0", batch+single)
			}
			if rows := h.pending(t); len(rows) != 1 {
				t.Errorf("pending = %d, want 1", len(rows))
			}
		})
	}
}

func TestClose_OfflineStillQueues(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SetOnline(context.Background(), false)

	openDune(t, h)
	if h.remote.hashLookups != 0 {
		t.Errorf("offline open made %d remote lookups", h.remote.hashLookups)
	}
	h.clock.Advance(5 * time.Minute)
	res, err := h.engine.OnDocumentClosed(context.Background(), models.Position{Page: 20, TotalPages: 400}, EndOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Queued {
		t.Error("offline close must still queue")
	}
	rows := h.pending(t)
	if len(rows) != 1 || rows[0].BookID != nil || rows[0].BookHash != "h1" {
		t.Errorf("pending = %+v", rows)
	}
}

func TestSilentClose_OmitsReport(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.byHash["h1"] = 42
	h.remote.known[42] = true

	openDune(t, h)
	h.clock.Advance(5 * time.Minute)
	res, err := h.engine.OnDocumentClosed(context.Background(),
		models.Position{Page: 20, TotalPages: 400}, EndOptions{Silent: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Sync != nil {
		t.Errorf("silent close returned a sync report")
	}
	if rows := h.pending(t); len(rows) != 0 {
		t.Errorf("silent close should still sync, pending = %d", len(rows))
	}
}

func TestSuspendResume(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.byHash["h1"] = 42
	h.remote.known[42] = true
	ctx := context.Background()

	openDune(t, h)
	h.clock.Advance(5 * time.Minute)
	if err := h.engine.OnSuspend(ctx, models.Position{Page: 18, TotalPages: 400}); err != nil {
		t.Fatalf("OnSuspend: %v", err)
	}
	if batch, single := h.remote.calls(); batch+single != 0 {
		t.Error("suspend must not upload")
	}
	if rows := h.pending(t); len(rows) != 1 {
		t.Fatalf("pending after suspend = %d, want 1", len(rows))
	}
	if h.engine.ActiveSession() != nil {
		t.Fatal("session still active after suspend")
	}

	h.clock.Advance(8 * time.Hour)
	if err := h.engine.OnResume(ctx, models.Position{Page: 18, TotalPages: 400}); err != nil {
		t.Fatalf("OnResume: %v", err)
	}
	active := h.engine.ActiveSession()
	if active == nil || active.Locator != "/books/dune.epub" || active.StartLocation != "18" {
		t.Fatalf("resumed session = %+v", active)
	}
	if rows := h.pending(t); len(rows) != 0 {
		t.Errorf("sync on resume left %d pending", len(rows))
	}
}

func TestOpened_RejectsInvalidDocument(t *testing.T) {
	h := newHarness(t, nil)
	err := h.engine.OnDocumentOpened(context.Background(), &models.Document{})
	if !syncerr.Is(err, syncerr.KindValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestClose_UnreadableDocumentStillQueues(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	// No hash registered: the fingerprint fails like a missing file.
	err := h.engine.OnDocumentOpened(ctx, &models.Document{
		Locator:  "/books/virtual.epub",
		Title:    "Virtual",
		Position: models.Position{Page: 10, TotalPages: 400},
	})
	if err != nil {
		t.Fatalf("OnDocumentOpened: %v", err)
	}
	h.clock.Advance(10 * time.Minute)

	res, err := h.engine.OnDocumentClosed(ctx, models.Position{Page: 30, TotalPages: 400}, EndOptions{ForceQueue: true})
	if err != nil {
		t.Fatalf("OnDocumentClosed: %v", err)
	}
	if !res.Queued {
		t.Fatalf("session not queued: %+v", res)
	}
	rows := h.pending(t)
	if len(rows) != 1 {
		t.Fatalf("pending = %d, want 1", len(rows))
	}
	if want := identity.LocatorHash("/books/virtual.epub"); rows[0].BookHash != want {
		t.Errorf("book hash = %q, want locator hash %q", rows[0].BookHash, want)
	}
}
