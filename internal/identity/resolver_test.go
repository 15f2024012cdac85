// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/folio/internal/cache"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

// fakeAPI serves books from in-memory maps and counts calls.
type fakeAPI struct {
	byHash  map[string]models.BookRecord
	byISBN  map[string]models.BookRecord
	byTitle map[string][]models.BookCandidate
	err     error

	hashCalls, isbnCalls, titleCalls int
}

func (f *fakeAPI) BookByHash(_ context.Context, hash string) (*models.BookRecord, error) {
	f.hashCalls++
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.byHash[hash]; ok {
		return &b, nil
	}
	return nil, syncerr.FromStatus("GET /books/by-hash", 404, nil)
}

func (f *fakeAPI) SearchISBN(_ context.Context, isbn string) ([]models.BookCandidate, error) {
	f.isbnCalls++
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.byISBN[isbn]; ok {
		return []models.BookCandidate{{BookRecord: b, Score: 1}}, nil
	}
	return nil, nil
}

func (f *fakeAPI) SearchTitle(_ context.Context, title string) ([]models.BookCandidate, error) {
	f.titleCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byTitle[title], nil
}

func (f *fakeAPI) SubmitSession(context.Context, *models.SessionPayload) error { return nil }
func (f *fakeAPI) SubmitBatch(context.Context, *models.BatchPayload) error     { return nil }
func (f *fakeAPI) Health(context.Context) error                                { return nil }
func (f *fakeAPI) CheckAuth(context.Context) error                             { return nil }

func setupResolver(t *testing.T, api *fakeAPI) (*Resolver, *database.DB) {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "folio.db"),
		BusyTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewResolver(db, api, cache.NewNegativeCache(100, time.Minute)), db
}

func TestResolve_CacheHashHit(t *testing.T) {
	api := &fakeAPI{}
	r, db := setupResolver(t, api)
	ctx := context.Background()

	if err := db.UpsertIdentity(ctx, &models.IdentityCacheEntry{
		Locator:      "/books/a.epub",
		ContentHash:  models.StringPtr("h1"),
		RemoteBookID: models.Int64Ptr(11),
	}); err != nil {
		t.Fatal(err)
	}

	res, err := r.Resolve(ctx, &Request{Locator: "/mnt/copy/a.epub", Hash: "h1", Online: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Resolved() || *res.BookID != 11 || res.Strategy != StrategyCacheHash {
		t.Fatalf("result = %+v", res)
	}
	if api.hashCalls+api.isbnCalls+api.titleCalls != 0 {
		t.Error("cache hit must not touch the network")
	}

	// The new locator was backfilled.
	entry, err := db.IdentityByLocator(ctx, "/mnt/copy/a.epub")
	if err != nil {
		t.Fatalf("locator not backfilled: %v", err)
	}
	if entry.RemoteBookID == nil || *entry.RemoteBookID != 11 {
		t.Errorf("backfilled remote id = %v", entry.RemoteBookID)
	}
}

func TestResolve_LocatorRequiresMatchingHash(t *testing.T) {
	r, db := setupResolver(t, &fakeAPI{})
	ctx := context.Background()

	if err := db.UpsertIdentity(ctx, &models.IdentityCacheEntry{
		Locator:      "/books/a.epub",
		ContentHash:  models.StringPtr("old"),
		RemoteBookID: models.Int64Ptr(5),
	}); err != nil {
		t.Fatal(err)
	}

	res, err := r.Resolve(ctx, &Request{Locator: "/books/a.epub", Hash: "new"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Resolved() {
		t.Errorf("stale locator entry resolved: %+v", res)
	}
}

func TestResolve_ISBNPrecedesRemoteHash(t *testing.T) {
	api := &fakeAPI{
		byISBN: map[string]models.BookRecord{"9780441013593": {ID: 21, Title: "Dune"}},
		byHash: map[string]models.BookRecord{"h2": {ID: 99}},
	}
	r, db := setupResolver(t, api)
	ctx := context.Background()

	res, err := r.Resolve(ctx, &Request{
		Locator: "/books/dune.epub",
		Hash:    "h2",
		ISBN13:  "978-0-441-01359-3",
		Online:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Resolved() || *res.BookID != 21 || res.Strategy != StrategyRemoteISBN {
		t.Fatalf("result = %+v", res)
	}
	if api.hashCalls != 0 {
		t.Errorf("hash lookup ran after ISBN hit: %d calls", api.hashCalls)
	}

	entry, err := db.IdentityByHash(ctx, "h2")
	if err != nil || entry.RemoteBookID == nil || *entry.RemoteBookID != 21 {
		t.Errorf("hit not cached: %+v, %v", entry, err)
	}
}

func TestResolve_CachedISBN(t *testing.T) {
	api := &fakeAPI{}
	r, db := setupResolver(t, api)
	ctx := context.Background()

	if err := db.UpsertIdentity(ctx, &models.IdentityCacheEntry{
		Locator:      "/other/dune.pdf",
		ContentHash:  models.StringPtr("pdfhash"),
		RemoteBookID: models.Int64Ptr(21),
		ISBN13:       models.StringPtr("9780441013593"),
	}); err != nil {
		t.Fatal(err)
	}

	res, err := r.Resolve(ctx, &Request{Locator: "/books/dune.epub", Hash: "epubhash", ISBN13: "9780441013593"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Resolved() || *res.BookID != 21 || res.Strategy != StrategyCacheISBN {
		t.Fatalf("result = %+v", res)
	}
}

func TestResolve_RemoteHashMissIsMemoised(t *testing.T) {
	api := &fakeAPI{}
	r, _ := setupResolver(t, api)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := r.Resolve(ctx, &Request{Hash: "unknown", Online: true})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if res.Resolved() {
			t.Fatalf("unexpected hit: %+v", res)
		}
	}
	if api.hashCalls != 1 {
		t.Errorf("hash lookups = %d, want 1", api.hashCalls)
	}
}

func TestResolve_OfflineSkipsRemote(t *testing.T) {
	api := &fakeAPI{byHash: map[string]models.BookRecord{"h": {ID: 1}}}
	r, _ := setupResolver(t, api)

	res, err := r.Resolve(context.Background(), &Request{Hash: "h", Online: false})
	if err != nil {
		t.Fatal(err)
	}
	if res.Resolved() || api.hashCalls != 0 {
		t.Errorf("offline resolution used the network: %+v, calls=%d", res, api.hashCalls)
	}
}

func TestResolve_RemoteErrorSurfaces(t *testing.T) {
	api := &fakeAPI{err: syncerr.FromTransport("GET /books/by-hash/h", context.DeadlineExceeded)}
	r, _ := setupResolver(t, api)

	_, err := r.Resolve(context.Background(), &Request{Hash: "h", Online: true})
	if !syncerr.Is(err, syncerr.KindOffline) {
		t.Errorf("expected offline error, got %v", err)
	}
}

func TestResolve_TitleCandidatesNeverAccepted(t *testing.T) {
	api := &fakeAPI{byTitle: map[string][]models.BookCandidate{
		"Emma": {{BookRecord: models.BookRecord{ID: 3, Title: "Emma"}, Score: 0.97}},
	}}
	r, db := setupResolver(t, api)
	ctx := context.Background()

	res, err := r.Resolve(ctx, &Request{Locator: "/books/emma.epub", Hash: "he", Title: "Emma", Online: true, WithCandidates: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Resolved() {
		t.Fatal("title match must not be auto-accepted")
	}
	if res.Strategy != StrategyTitle || len(res.Candidates) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if _, err := db.IdentityByLocator(ctx, "/books/emma.epub"); err != database.ErrNotFound {
		t.Errorf("candidates must not be cached, got %v", err)
	}
}

func TestConfirmAndForget(t *testing.T) {
	api := &fakeAPI{}
	r, db := setupResolver(t, api)
	ctx := context.Background()

	// Remember a miss first; Confirm must clear it.
	if _, err := r.Resolve(ctx, &Request{Hash: "hc", Online: true}); err != nil {
		t.Fatal(err)
	}
	if err := r.Confirm(ctx, "/books/c.epub", "hc", 77); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	res, err := r.Resolve(ctx, &Request{Locator: "/books/c.epub", Hash: "hc"})
	if err != nil || !res.Resolved() || *res.BookID != 77 {
		t.Fatalf("after confirm: %+v, %v", res, err)
	}

	if err := r.Forget(ctx, "hc"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	entry, err := db.IdentityByLocator(ctx, "/books/c.epub")
	if err != nil {
		t.Fatal(err)
	}
	if entry.RemoteBookID != nil {
		t.Errorf("remote id survived Forget: %d", *entry.RemoteBookID)
	}
	if entry.ContentHash == nil || *entry.ContentHash != "hc" {
		t.Error("Forget must keep other fields")
	}
}

func TestConfirm_Validation(t *testing.T) {
	r, _ := setupResolver(t, &fakeAPI{})
	tests := []struct {
		name    string
		locator string
		bookID  int64
	}{
		{"no locator", "", 1},
		{"zero id", "/a.epub", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Confirm(context.Background(), tt.locator, "h", tt.bookID)
			if !syncerr.Is(err, syncerr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestResolveCached(t *testing.T) {
	r, db := setupResolver(t, &fakeAPI{})
	ctx := context.Background()

	seed := []*models.IdentityCacheEntry{
		{Locator: "/a.epub", ContentHash: models.StringPtr("ha"), RemoteBookID: models.Int64Ptr(1)},
		// Known hash without an id, sharing an ISBN with a matched entry.
		{Locator: "/b.epub", ContentHash: models.StringPtr("hb"), ISBN13: models.StringPtr("9780306406157")},
		{Locator: "/b.pdf", ContentHash: models.StringPtr("hb-pdf"), RemoteBookID: models.Int64Ptr(2), ISBN13: models.StringPtr("9780306406157")},
		{Locator: "/c.epub", RemoteBookID: models.Int64Ptr(3)},
	}
	for _, e := range seed {
		if err := db.UpsertIdentity(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		hash    string
		locator string
		want    int64 // 0 means unresolved
	}{
		{"by hash", "ha", "", 1},
		{"by isbn", "hb", "", 2},
		{"by locator", "hc", "/c.epub", 3},
		{"miss", "zz", "/z.epub", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveCached(ctx, tt.hash, tt.locator)
			if err != nil {
				t.Fatal(err)
			}
			switch {
			case tt.want == 0 && got != nil:
				t.Errorf("got %d, want unresolved", *got)
			case tt.want != 0 && (got == nil || *got != tt.want):
				t.Errorf("got %v, want %d", got, tt.want)
			}
		})
	}
}

func TestNormalizeISBN(t *testing.T) {
	tests := map[string]string{
		"978-0-306-40615-7": "9780306406157",
		"0-8044-2957-x":     "080442957X",
		"12345":             "",
		"":                  "",
	}
	for in, want := range tests {
		if got := normalizeISBN(in); got != want {
			t.Errorf("normalizeISBN(%q) = %q, want %q", in, got, want)
		}
	}
}
