// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package upload submits reading sessions of one book to the remote server.
//
// A single session goes to the single-session endpoint. Larger sets are split
// into chunks of at most 100 sessions for the batch endpoint. The batch
// endpoint answering 404 is ambiguous (endpoint missing on older servers, or
// book gone), so the chunk is resubmitted session by session and each result
// is classified on its own:
//
//	batch 2xx  -> every session Synced
//	batch 404  -> per-session: 2xx Synced, 404 Unmatched, other Failed
//	batch 403  -> whole chunk Failed, no fallback
//	other      -> whole chunk Failed
//
// The Uploader never retries on its own; callers fold Failed outcomes into
// queue retry counts. Offline and auth failures stop the remaining chunks,
// since every further call would fail the same way.
package upload
