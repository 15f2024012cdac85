// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package services provides suture.Service wrappers for Folio components.

Each wrapper implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and returns ctx.Err() on a clean shutdown.

# Available Services

HTTPServerService wraps the local bridge *http.Server with graceful shutdown.

TaskTickerService advances the engine task queue one step per
tasks.tick_interval, on the engine loop.

SyncSchedulerService runs a pending-queue pass every sync.interval. A busy
engine or an unconfigured remote is not a failure; the next tick retries.
*/
package services
