// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/remote"
)

// fakeRemote is an in-memory catalog server.
type fakeRemote struct {
	mu sync.Mutex

	// byHash maps content hashes to catalog ids.
	byHash map[string]int64
	// known is the set of book ids sessions may be posted for.
	known map[int64]bool
	// titles maps a title query to its candidates.
	titles map[string][]models.BookCandidate

	healthStatus int
	authStatus   int

	hashLookups int
	batchCalls  int
	singleCalls int
	received    []models.SessionPayload
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		byHash:       make(map[string]int64),
		known:        make(map[int64]bool),
		titles:       make(map[string][]models.BookCandidate),
		healthStatus: http.StatusOK,
		authStatus:   http.StatusOK,
	}
}

func (f *fakeRemote) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(f.healthStatus)
	})
	r.Get("/users/auth", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(f.authStatus)
	})
	r.Get("/books/by-hash/{hash}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.hashLookups++
		id, ok := f.byHash[chi.URLParam(req, "hash")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(models.BookRecord{ID: id, Title: "Book"})
	})
	r.Get("/books", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		cands := f.titles[req.URL.Query().Get("title")]
		if cands == nil {
			cands = []models.BookCandidate{}
		}
		_ = json.NewEncoder(w).Encode(cands)
	})
	r.Post(remote.BatchPath, func(w http.ResponseWriter, req *http.Request) {
		var batch models.BatchPayload
		if err := json.NewDecoder(req.Body).Decode(&batch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.batchCalls++
		if !f.known[batch.BookID] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.received = append(f.received, batch.Sessions...)
		w.WriteHeader(http.StatusCreated)
	})
	r.Post(remote.SessionPath, func(w http.ResponseWriter, req *http.Request) {
		var s models.SessionPayload
		if err := json.NewDecoder(req.Body).Decode(&s); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.singleCalls++
		if !f.known[s.BookID] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.received = append(f.received, s)
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

func (f *fakeRemote) calls() (batch, single int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchCalls, f.singleCalls
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	engine *Engine
	db     *database.DB
	remote *fakeRemote
	clock  *fakeClock
	cfg    *config.Config
	hashes map[string]string
}

// newHarness wires an engine to a temp database and a fake server.
// mutate adjusts the configuration before wiring.
func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()
	fake := newFakeRemote()
	srv := httptest.NewServer(fake.router())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "folio.db")
	cfg.Remote.URL = srv.URL
	cfg.Remote.Username = "reader"
	cfg.Remote.Password = "secret"
	cfg.Remote.AuthMode = config.AuthModeBasic
	cfg.Remote.RequestsPerSecond = 0
	cfg.Tracking.MinDuration = time.Minute
	if mutate != nil {
		mutate(cfg)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clock := &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	db.SetClock(clock.Now)

	h := &harness{db: db, remote: fake, clock: clock, cfg: cfg, hashes: make(map[string]string)}
	e, err := New(Deps{
		Config: cfg,
		DB:     db,
		Remote: remote.NewClient(&cfg.Remote, nil),
		Fingerprint: func(path string) (string, error) {
			if hash, ok := h.hashes[path]; ok {
				return hash, nil
			}
			return "", errors.New("no such file")
		},
		Now: clock.Now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.engine = e
	return h
}

// enqueue stores n pending sessions for hash, one hour apart.
func (h *harness) enqueue(t *testing.T, hash string, bookID *int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		start := h.clock.now.Add(-time.Duration(n-i) * time.Hour)
		_, err := h.db.EnqueuePending(context.Background(), &models.PendingSession{
			BookID:          bookID,
			BookHash:        hash,
			BookType:        "EPUB",
			StartTime:       start,
			EndTime:         start.Add(20 * time.Minute),
			DurationSeconds: 1200,
			StartProgress:   1,
			EndProgress:     2,
			ProgressDelta:   1,
			StartLocation:   "10",
			EndLocation:     "20",
		})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
}

// archive stores n unmatched historical sessions for hash.
func (h *harness) archive(t *testing.T, hash string, sourceID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		start := h.clock.now.Add(-time.Duration(n-i) * 24 * time.Hour)
		_, err := h.db.InsertHistorical(context.Background(), &models.HistoricalSession{
			SourceBookID:    sourceID,
			SourceBookTitle: "Old Book",
			BookHash:        hash,
			BookType:        "EPUB",
			StartTime:       start,
			EndTime:         start.Add(30 * time.Minute),
			DurationSeconds: 1800,
			StartProgress:   10,
			EndProgress:     20,
			ProgressDelta:   10,
			StartLocation:   "5",
			EndLocation:     "9",
		})
		if err != nil {
			t.Fatalf("archive: %v", err)
		}
	}
}

func (h *harness) pending(t *testing.T) []models.PendingSession {
	t.Helper()
	rows, err := h.db.ListPending(context.Background(), 1000)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	return rows
}

func (h *harness) historicalStats(t *testing.T) models.HistoricalStats {
	t.Helper()
	stats, err := h.db.GetHistoricalStats(context.Background())
	if err != nil {
		t.Fatalf("GetHistoricalStats: %v", err)
	}
	return stats
}
