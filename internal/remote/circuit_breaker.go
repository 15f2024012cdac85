// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package remote

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

// Ensure CircuitBreakerClient implements API
var _ API = (*CircuitBreakerClient)(nil)

// CircuitBreakerClient wraps Client with a circuit breaker so that an
// unreachable server is not hammered once per queued session.
//
// Only offline and server failures count against the breaker. A 404 or
// 403 is a normal protocol answer and keeps the circuit closed.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient wraps client. The circuit opens after
// cfg.BreakerFailures consecutive failures and half-opens after
// cfg.BreakerTimeout.
func NewCircuitBreakerClient(client *Client, cfg *config.RemoteConfig) *CircuitBreakerClient {
	cbName := "remote-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	threshold := cfg.BreakerFailures
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening remote circuit")
			}
			return trip
		},

		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch syncerr.KindOf(err) {
			case syncerr.KindOffline, syncerr.KindServer:
				return false
			default:
				return true
			}
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] Remote state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute runs fn through the breaker. Rejections become KindOffline.
func (cbc *CircuitBreakerClient) execute(op string, fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Debug().Str("op", op).Msg("[CIRCUIT BREAKER] Remote request rejected")
			return nil, syncerr.New(syncerr.KindOffline, op, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// castResult type-checks a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, syncerr.New(syncerr.KindUnknown, "circuit breaker", errors.New("unexpected result type"))
	}
	return typed, nil
}

// State returns the current breaker state.
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

// Client returns the wrapped client.
func (cbc *CircuitBreakerClient) Client() *Client {
	return cbc.client
}

// BookByHash looks a document up through the breaker.
func (cbc *CircuitBreakerClient) BookByHash(ctx context.Context, hash string) (*models.BookRecord, error) {
	return castResult[*models.BookRecord](cbc.execute("books_by_hash", func() (any, error) {
		return cbc.client.BookByHash(ctx, hash)
	}))
}

// SearchISBN searches by ISBN through the breaker.
func (cbc *CircuitBreakerClient) SearchISBN(ctx context.Context, isbn string) ([]models.BookCandidate, error) {
	return castResult[[]models.BookCandidate](cbc.execute("books_isbn", func() (any, error) {
		return cbc.client.SearchISBN(ctx, isbn)
	}))
}

// SearchTitle searches by title through the breaker.
func (cbc *CircuitBreakerClient) SearchTitle(ctx context.Context, title string) ([]models.BookCandidate, error) {
	return castResult[[]models.BookCandidate](cbc.execute("books_title", func() (any, error) {
		return cbc.client.SearchTitle(ctx, title)
	}))
}

// SubmitSession uploads one session through the breaker.
func (cbc *CircuitBreakerClient) SubmitSession(ctx context.Context, session *models.SessionPayload) error {
	_, err := cbc.execute("session", func() (any, error) {
		return nil, cbc.client.SubmitSession(ctx, session)
	})
	return err
}

// SubmitBatch uploads a batch through the breaker.
func (cbc *CircuitBreakerClient) SubmitBatch(ctx context.Context, batch *models.BatchPayload) error {
	_, err := cbc.execute("batch", func() (any, error) {
		return nil, cbc.client.SubmitBatch(ctx, batch)
	})
	return err
}

// Health checks reachability through the breaker.
func (cbc *CircuitBreakerClient) Health(ctx context.Context) error {
	_, err := cbc.execute("health", func() (any, error) {
		return nil, cbc.client.Health(ctx)
	})
	return err
}

// CheckAuth verifies credentials through the breaker.
func (cbc *CircuitBreakerClient) CheckAuth(ctx context.Context) error {
	_, err := cbc.execute("users_auth", func() (any, error) {
		return nil, cbc.client.CheckAuth(ctx)
	})
	return err
}

// stateToFloat converts circuit breaker state to a gauge value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
