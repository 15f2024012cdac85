// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package hoststats reads the host reader's statistics database and turns
// its per-page observations into historical sessions.
//
// # Source Schema
//
// The statistics file is the KOReader-compatible SQLite layout:
//
//   - book: id, title, authors, md5 (content fingerprint), pages
//   - page_stat_data: id_book, page, start_time (unix), duration (s), total_pages
//
// The file is opened read-only; the host keeps writing to it.
//
// # Extraction
//
// Extractor walks books in id order a few at a time so the caller can
// spread the work over task-queue ticks:
//
//	x := hoststats.NewExtractor(reader, db, resolver, cfg.Extract.Gap)
//	if err := x.Begin(ctx); err != nil { ... }
//	for {
//	    done, err := x.Step(ctx, cfg.Extract.BooksPerTick)
//	    if err != nil || done { break }
//	}
//
// Sessions are rebuilt with segment.Reconstruct and written with
// SourceBookID set to the host book id. Identity comes from the local cache
// only. Re-running extraction never duplicates rows: the archive's natural
// key (source book, start, end) rejects them.
package hoststats
