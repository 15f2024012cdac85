// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"fmt"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/engine"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/remote"
	"github.com/tomtom215/folio/internal/token"
)

// app is the wired application shared by every subcommand.
type app struct {
	cfg    *config.Config
	db     *database.DB
	engine *engine.Engine
}

// newApp opens the store and wires the remote client and the engine.
func newApp(cfg *config.Config) (*app, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	eng, err := engine.New(engine.Deps{
		Config: cfg,
		DB:     db,
		Remote: newRemote(cfg, db),
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Debug().
		Str("db_path", cfg.Database.Path).
		Bool("remote", cfg.RemoteConfigured()).
		Str("auth_mode", cfg.Remote.AuthMode).
		Msg("Application wired")
	return &app{cfg: cfg, db: db, engine: eng}, nil
}

// newRemote builds the guarded remote client, or nil without a server.
func newRemote(cfg *config.Config, db *database.DB) remote.API {
	if !cfg.RemoteConfigured() {
		logging.Info().Msg("No remote configured, sessions will only be queued")
		return nil
	}
	client := remote.NewClient(&cfg.Remote, nil)
	if cfg.Remote.AuthMode == config.AuthModeBearer {
		// Logins go through the raw client, outside the breaker.
		store := token.NewStore(db, client, &cfg.Remote)
		client.SetTokenSource(store.Source(cfg.Remote.Username, cfg.Remote.Password))
	}
	return remote.NewCircuitBreakerClient(client, &cfg.Remote)
}

// Close releases the store.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}
