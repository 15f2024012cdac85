// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/engine"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/remote"
)

// catalog is a minimal remote server: one known book (id 42, hash "h1").
func catalog() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/users/auth", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.Get("/books/by-hash/{hash}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "hash") != "h1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(models.BookRecord{ID: 42, Title: "Dune"})
	})
	r.Get("/books", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.BookCandidate{
			{BookRecord: models.BookRecord{ID: 42, Title: "Dune"}, Score: 0.9},
		})
	})
	r.Post(remote.BatchPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.Post(remote.SessionPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

type fixture struct {
	server *httptest.Server
	db     *database.DB
	engine *engine.Engine

	// now is the engine clock in unix nanoseconds. The loop reads it on
	// another goroutine.
	now atomic.Int64
}

// newFixture starts a bridge over a running engine loop. withRemote wires
// the engine to the fake catalog; otherwise no remote is configured.
func newFixture(t *testing.T, withRemote bool) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "folio.db")
	cfg.Tracking.MinDuration = time.Minute
	cfg.Server.RateLimitRequests = 1000

	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{db: db}
	f.now.Store(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC).UnixNano())
	deps := engine.Deps{
		Config: cfg,
		DB:     db,
		Fingerprint: func(path string) (string, error) {
			if path == "/books/dune.epub" {
				return "h1", nil
			}
			return "", errors.New("no such file")
		},
		Now: func() time.Time { return time.Unix(0, f.now.Load()).UTC() },
	}
	if withRemote {
		upstream := httptest.NewServer(catalog())
		t.Cleanup(upstream.Close)
		cfg.Remote.URL = upstream.URL
		cfg.Remote.Username = "reader"
		cfg.Remote.Password = "secret"
		cfg.Remote.AuthMode = config.AuthModeBasic
		cfg.Remote.RequestsPerSecond = 0
		deps.Remote = remote.NewClient(&cfg.Remote, nil)
	}

	eng, err := engine.New(deps)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	f.engine = eng

	loop := engine.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	f.server = httptest.NewServer(NewRouter(NewHandler(loop, eng), &cfg.Server))
	t.Cleanup(f.server.Close)
	return f
}

// advance moves the engine clock.
func (f *fixture) advance(d time.Duration) {
	f.now.Add(int64(d))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// do sends a request and decodes the envelope. body may be nil, a string
// (sent verbatim) or a value to encode.
func (f *fixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp.StatusCode, env
}

// data decodes the envelope payload into v.
func data(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func openDocument(t *testing.T, f *fixture) {
	t.Helper()
	status, env := f.do(t, http.MethodPost, "/v1/events/opened", models.Document{
		Locator:  "/books/dune.epub",
		Title:    "Dune",
		Position: models.Position{Page: 10, TotalPages: 400},
	})
	if status != http.StatusOK {
		t.Fatalf("opened status = %d, error = %+v", status, env.Error)
	}
}
