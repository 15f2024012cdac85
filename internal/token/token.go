// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package token manages the bearer token lifecycle for the remote server.
//
// A cached token is reused while it has more than the refresh margin
// (24h by default) left. Otherwise the store logs in again and records the
// new token with an assumed lifetime (28 days by default). Tokens persist
// in the bearer_tokens table so restarts do not force a login.
package token

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

// Repository persists tokens. *database.DB implements it.
type Repository interface {
	GetToken(ctx context.Context, username string) (*models.BearerToken, error)
	SaveToken(ctx context.Context, t *models.BearerToken) error
	DeleteToken(ctx context.Context, username string) error
}

// Authenticator exchanges credentials for a token. *remote.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Store caches and refreshes bearer tokens.
type Store struct {
	repo   Repository
	auth   Authenticator
	ttl    time.Duration
	margin time.Duration
	now    func() time.Time

	mu sync.Mutex
}

// NewStore creates a token store using cfg's TokenTTL and TokenRefreshMargin.
func NewStore(repo Repository, auth Authenticator, cfg *config.RemoteConfig) *Store {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 28 * 24 * time.Hour
	}
	margin := cfg.TokenRefreshMargin
	if margin <= 0 {
		margin = 24 * time.Hour
	}
	return &Store{
		repo:   repo,
		auth:   auth,
		ttl:    ttl,
		margin: margin,
		now:    time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// GetOrRefresh returns a usable token for username. Unless force is set, a
// cached token with more than the refresh margin left is returned without
// any network call.
func (s *Store) GetOrRefresh(ctx context.Context, username, password string, force bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	trigger := "forced"

	if !force {
		cached, err := s.repo.GetToken(ctx, username)
		switch {
		case err == nil && cached.ExpiresAt.Sub(now) > s.margin:
			return cached.Token, nil
		case err == nil:
			trigger = "expiring"
		case errors.Is(err, database.ErrNotFound):
			trigger = "missing"
		default:
			logging.Ctx(ctx).Warn().Err(err).Msg("Token cache read failed, logging in")
			trigger = "missing"
		}
	}

	tok, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	metrics.TokenRefreshes.WithLabelValues(trigger).Inc()

	entry := &models.BearerToken{Username: username, Token: tok, ExpiresAt: now.Add(s.ttl)}
	if err := s.repo.SaveToken(ctx, entry); err != nil {
		// The token is still good for this process.
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to persist bearer token")
	}

	logging.Ctx(ctx).Debug().Str("trigger", trigger).Time("expires_at", entry.ExpiresAt).Msg("Bearer token refreshed")
	return tok, nil
}

// Invalidate drops the cached token for username.
func (s *Store) Invalidate(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteToken(ctx, username); err != nil {
		return syncerr.Storage("invalidate token", err)
	}
	return nil
}

// Source binds the store to one set of credentials, satisfying
// remote.TokenSource.
type Source struct {
	store    *Store
	username string
	password string
}

// Source returns a token source for the given credentials.
func (s *Store) Source(username, password string) *Source {
	return &Source{store: s, username: username, password: password}
}

// Token returns a usable token.
func (src *Source) Token(ctx context.Context, force bool) (string, error) {
	return src.store.GetOrRefresh(ctx, src.username, src.password, force)
}

// Invalidate drops the cached token.
func (src *Source) Invalidate(ctx context.Context) error {
	return src.store.Invalidate(ctx, src.username)
}
