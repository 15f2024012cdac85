// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package logging provides centralized zerolog-based structured logging for Folio.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("book_hash", h).Msg("Session queued")
//	logging.Error().Err(err).Msg("Archive failed")
//
// Every sync pass runs under its own correlation ID:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("Sync pass started")
//
// # File Output
//
// Setting Config.File writes to a size-rotated file (lumberjack), which is
// the usual setup on e-reader hosts where stderr is not captured.
//
// # Supervisor Integration
//
// SlogHandler adapts zerolog to log/slog for sutureslog.
//
// Always terminate log chains with .Msg() or .Send().
package logging
