// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package models defines the data structures shared by the Folio sync engine.

Persistent records:

  - PendingSession: a completed reading session awaiting upload
  - HistoricalSession: the archive of uploaded and reconstructed sessions
  - IdentityCacheEntry: locally known identity of one document
  - BearerToken: cached remote credential per username

In-memory and wire types:

  - ActiveSession: the open session of the current document (lost on crash)
  - Document, Position: host event payloads
  - Observation, ReconstructedSession: bulk history reconstruction
  - BookRecord, BookCandidate: remote catalog entries
  - SessionPayload, BatchPayload: remote upload bodies

Nullable columns are modelled as pointers; nil means "unknown", never "empty".
*/
package models
