// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package cache provides in-memory caches used by identity resolution.

LRU is a generic, thread-safe least recently used cache with lazy TTL
expiry. NegativeCache builds on it to remember remote lookups that came
back empty, so a sync pass covering many sessions of an unknown book
asks the remote server about that book once.

	neg := cache.NewNegativeCache(cfg.Identity.NegativeCapacity, cfg.Identity.NegativeTTL)
	if neg.Missing("hash", hash) {
	    return nil
	}

Entries are not persisted; a restart forgets every recorded miss.
*/
package cache
