// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package models

import (
	"strconv"
	"strings"
	"time"
)

// IdentityCacheEntry is what is locally known about one document.
// Writes merge: a nil field never replaces a stored value.
type IdentityCacheEntry struct {
	Locator      string    `json:"locator"`
	ContentHash  *string   `json:"content_hash,omitempty"`
	RemoteBookID *int64    `json:"remote_book_id,omitempty"`
	Title        *string   `json:"title,omitempty"`
	Author       *string   `json:"author,omitempty"`
	ISBN10       *string   `json:"isbn10,omitempty"`
	ISBN13       *string   `json:"isbn13,omitempty"`
	LastAccessed time.Time `json:"last_accessed"`
}

// PreferredISBN returns the ISBN-13 when known, else the ISBN-10, else "".
func (e *IdentityCacheEntry) PreferredISBN() string {
	if e.ISBN13 != nil && *e.ISBN13 != "" {
		return *e.ISBN13
	}
	if e.ISBN10 != nil && *e.ISBN10 != "" {
		return *e.ISBN10
	}
	return ""
}

// BearerToken is a cached remote credential.
type BearerToken struct {
	Username  string    `json:"username"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BookRecord is a remote catalog entry.
type BookRecord struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	ISBN10 string `json:"isbn10,omitempty"`
	ISBN13 string `json:"isbn13,omitempty"`
}

// CacheEntry converts the record into an identity cache write for locator.
func (b *BookRecord) CacheEntry(locator, hash string) *IdentityCacheEntry {
	id := b.ID
	return &IdentityCacheEntry{
		Locator:      locator,
		ContentHash:  StringPtr(hash),
		RemoteBookID: &id,
		Title:        StringPtr(b.Title),
		Author:       StringPtr(b.Author),
		ISBN10:       StringPtr(b.ISBN10),
		ISBN13:       StringPtr(b.ISBN13),
	}
}

// BookCandidate is a ranked title-search result awaiting user confirmation.
type BookCandidate struct {
	BookRecord
	Score float64 `json:"score"`
}

// Position is the reader's place in a document as reported by the host.
type Position struct {
	Page       int     `json:"page" validate:"gte=0"`
	TotalPages int     `json:"total_pages" validate:"gte=0"`
	Progress   float64 `json:"progress" validate:"gte=0,lte=100"`
	Location   string  `json:"location,omitempty" validate:"max=512"`
}

// Normalized fills Progress and Location from the page numbers when absent.
func (p Position) Normalized() Position {
	if p.Progress == 0 {
		p.Progress = PageProgress(p.Page, p.TotalPages)
	}
	if p.Location == "" {
		p.Location = strconv.Itoa(p.Page)
	}
	return p
}

// PageProgress returns page/totalPages*100, or 0 when totalPages is unknown.
func PageProgress(page, totalPages int) float64 {
	if totalPages <= 0 {
		return 0
	}
	return float64(page) / float64(totalPages) * 100
}

// Document describes an opened document.
type Document struct {
	Locator  string   `json:"locator" validate:"required,max=4096"`
	Title    string   `json:"title,omitempty" validate:"max=1024"`
	Author   string   `json:"author,omitempty" validate:"max=1024"`
	ISBN10   string   `json:"isbn10,omitempty" validate:"omitempty,len=10"`
	ISBN13   string   `json:"isbn13,omitempty" validate:"omitempty,len=13"`
	BookType string   `json:"book_type,omitempty" validate:"max=16"`
	Position Position `json:"position"`
}

// Type returns BookType, deriving it from the locator extension when empty.
func (d *Document) Type() string {
	if d.BookType != "" {
		return strings.ToUpper(d.BookType)
	}
	if i := strings.LastIndexByte(d.Locator, '.'); i >= 0 && i < len(d.Locator)-1 {
		return strings.ToUpper(d.Locator[i+1:])
	}
	return "UNKNOWN"
}

// Observation is one page-stat row from the host statistics store.
type Observation struct {
	Timestamp       time.Time
	DurationSeconds int64
	Page            int
	TotalPages      int
}

// ReconstructedSession is a session rebuilt from observations.
type ReconstructedSession struct {
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
	StartProgress   float64
	EndProgress     float64
	StartLocation   string
	EndLocation     string
}

// StringPtr returns nil for "" and &s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int64Ptr returns &v.
func Int64Ptr(v int64) *int64 {
	return &v
}

// Deref returns *s or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
