// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package engine orchestrates session tracking, identity resolution and
// uploads.
//
// # Threading
//
// Engine is not safe for concurrent use. In serve mode every host event,
// bridge request, periodic sync and task tick is submitted to a single Loop
// and runs serially:
//
//	report, err := engine.Call(ctx, loop, e.SyncPending)
//
// One-shot command-line runs call the Engine directly.
//
// # States
//
// Guarded operations (sync passes, re-matching, extraction, queue clearing)
// require StateIdle and return ErrBusy otherwise. Re-matching and extraction
// keep the engine in StateMatching or StateScanning until their task in the
// tasks.Queue completes or is canceled.
//
// # Error policy
//
// Failures a later pass can retry are folded into queue state (retry counts)
// and logged. Only user actions without a retry path return errors:
// TestConnection, ConfirmMatch, and saving a just-ended session.
package engine
