// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

func newBreakerClient(t *testing.T, h http.Handler) *CircuitBreakerClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := testRemoteConfig(srv.URL)
	return NewCircuitBreakerClient(NewClient(cfg, &fakeTokens{}), cfg)
}

func TestCircuitBreaker_OpensAfterServerFailures(t *testing.T) {
	var calls atomic.Int32
	cbc := newBreakerClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if cbc.State() != gobreaker.StateClosed {
		t.Fatalf("initial state = %v, want closed", cbc.State())
	}

	for i := 0; i < 3; i++ {
		err := cbc.Health(context.Background())
		if !syncerr.Is(err, syncerr.KindServer) {
			t.Fatalf("call %d: expected server error, got %v", i, err)
		}
	}

	if cbc.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", cbc.State())
	}

	err := cbc.Health(context.Background())
	if !syncerr.Is(err, syncerr.KindOffline) {
		t.Errorf("open breaker should report offline, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3 (fourth rejected)", calls.Load())
	}
}

func TestCircuitBreaker_NotFoundDoesNotTrip(t *testing.T) {
	cbc := newBreakerClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for i := 0; i < 10; i++ {
		err := cbc.SubmitBatch(context.Background(), &models.BatchPayload{BookID: 1})
		if !syncerr.Is(err, syncerr.KindAmbiguousNotFound) {
			t.Fatalf("expected not_found, got %v", err)
		}
	}
	if cbc.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed after 404s", cbc.State())
	}
}

func TestCircuitBreaker_PassesResults(t *testing.T) {
	cbc := newBreakerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/books/by-hash/h1":
			_, _ = w.Write([]byte(`{"id":9,"title":"Emma"}`))
		case "/books":
			_, _ = w.Write([]byte(`[{"id":9,"title":"Emma","score":0.8}]`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))

	book, err := cbc.BookByHash(context.Background(), "h1")
	if err != nil || book.ID != 9 {
		t.Fatalf("BookByHash = %+v, %v", book, err)
	}
	cands, err := cbc.SearchTitle(context.Background(), "emma")
	if err != nil || len(cands) != 1 || cands[0].Score != 0.8 {
		t.Fatalf("SearchTitle = %+v, %v", cands, err)
	}
	if err := cbc.SubmitSession(context.Background(), &models.SessionPayload{BookID: 9}); err != nil {
		t.Errorf("SubmitSession: %v", err)
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		str   string
		val   float64
	}{
		{gobreaker.StateClosed, "closed", 0},
		{gobreaker.StateHalfOpen, "half-open", 1},
		{gobreaker.StateOpen, "open", 2},
	}
	for _, tt := range tests {
		if got := stateToString(tt.state); got != tt.str {
			t.Errorf("stateToString(%v) = %q, want %q", tt.state, got, tt.str)
		}
		if got := stateToFloat(tt.state); got != tt.val {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.val)
		}
	}
}
