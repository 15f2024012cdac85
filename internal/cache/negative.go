// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package cache

import "time"

// NegativeCache remembers lookups that found nothing, keyed by a
// namespace and a value (for example "hash" and an MD5 digest).
type NegativeCache struct {
	lru *LRU[struct{}]
}

// NewNegativeCache creates a negative-lookup cache.
func NewNegativeCache(capacity int, ttl time.Duration) *NegativeCache {
	return &NegativeCache{lru: NewLRU[struct{}](capacity, ttl)}
}

func negativeKey(kind, value string) string {
	return kind + ":" + value
}

// Missing reports whether kind/value was recorded as not found recently.
func (n *NegativeCache) Missing(kind, value string) bool {
	_, ok := n.lru.Get(negativeKey(kind, value))
	return ok
}

// MarkMissing records kind/value as not found.
func (n *NegativeCache) MarkMissing(kind, value string) {
	n.lru.Add(negativeKey(kind, value), struct{}{})
}

// Forget removes a recorded miss, e.g. after a user confirms a match.
func (n *NegativeCache) Forget(kind, value string) {
	n.lru.Remove(negativeKey(kind, value))
}

// Reset drops every recorded miss.
func (n *NegativeCache) Reset() {
	n.lru.Clear()
}

// SetClock replaces the time source. Tests only.
func (n *NegativeCache) SetClock(now func() time.Time) {
	n.lru.SetClock(now)
}
