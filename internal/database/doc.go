// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package database is Folio's local SQLite store (modernc.org/sqlite, pure Go).

Tables:

  - identity_cache: locator -> content hash, remote book id, ISBNs (merge-upsert)
  - pending_sessions: sessions awaiting upload, drained oldest-first
  - historical_sessions: archive, unique on (source_book_id, start_time, end_time)
  - bearer_tokens: one cached token per username
  - schema_migrations: applied migration versions

The database runs in WAL journal mode over a single connection. Schema
changes are forward-only migrations, each applied in its own transaction.

ArchiveAndRemove copies a pending row into the archive and deletes it in one
transaction. If a crash separates a successful upload from the archive step,
the next pass uploads again and the archive insert is absorbed by the natural
key, so the local store never loses or doubles a session.
*/
package database
