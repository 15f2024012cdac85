// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package models

import "time"

// LiveSourceBookID marks historical rows that came from a live tracked
// session rather than from the host statistics store.
const LiveSourceBookID int64 = 0

// PendingSession is a completed reading session waiting for upload.
type PendingSession struct {
	ID              int64      `json:"id"`
	BookID          *int64     `json:"book_id,omitempty"`
	BookHash        string     `json:"book_hash"`
	BookTitle       string     `json:"book_title,omitempty"`
	BookType        string     `json:"book_type"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationSeconds int64      `json:"duration_seconds"`
	StartProgress   float64    `json:"start_progress"`
	EndProgress     float64    `json:"end_progress"`
	ProgressDelta   float64    `json:"progress_delta"`
	StartLocation   string     `json:"start_location"`
	EndLocation     string     `json:"end_location"`
	CreatedAt       time.Time  `json:"created_at"`
	RetryCount      int        `json:"retry_count"`
	LastRetryAt     *time.Time `json:"last_retry_at,omitempty"`
}

// Payload converts the session into its upload form. bookID must be resolved.
func (p *PendingSession) Payload(bookID int64) SessionPayload {
	return SessionPayload{
		BookID:          bookID,
		BookType:        p.BookType,
		StartTime:       p.StartTime.UTC(),
		EndTime:         p.EndTime.UTC(),
		DurationSeconds: p.DurationSeconds,
		StartProgress:   p.StartProgress,
		EndProgress:     p.EndProgress,
		ProgressDelta:   p.ProgressDelta,
		StartLocation:   p.StartLocation,
		EndLocation:     p.EndLocation,
	}
}

// HistoricalSession is an archived or reconstructed session. The tuple
// (SourceBookID, StartTime, EndTime) is unique.
type HistoricalSession struct {
	ID              int64      `json:"id"`
	SourceBookID    int64      `json:"source_book_id"`
	SourceBookTitle string     `json:"source_book_title,omitempty"`
	BookID          *int64     `json:"book_id,omitempty"`
	BookHash        string     `json:"book_hash"`
	BookType        string     `json:"book_type"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationSeconds int64      `json:"duration_seconds"`
	StartProgress   float64    `json:"start_progress"`
	EndProgress     float64    `json:"end_progress"`
	ProgressDelta   float64    `json:"progress_delta"`
	StartLocation   string     `json:"start_location"`
	EndLocation     string     `json:"end_location"`
	CreatedAt       time.Time  `json:"created_at"`
	RetryCount      int        `json:"retry_count"`
	LastRetryAt     *time.Time `json:"last_retry_at,omitempty"`
	Matched         bool       `json:"matched"`
	Synced          bool       `json:"synced"`
}

// Payload converts the archived session into its upload form.
func (h *HistoricalSession) Payload(bookID int64) SessionPayload {
	return SessionPayload{
		BookID:          bookID,
		BookType:        h.BookType,
		StartTime:       h.StartTime.UTC(),
		EndTime:         h.EndTime.UTC(),
		DurationSeconds: h.DurationSeconds,
		StartProgress:   h.StartProgress,
		EndProgress:     h.EndProgress,
		ProgressDelta:   h.ProgressDelta,
		StartLocation:   h.StartLocation,
		EndLocation:     h.EndLocation,
	}
}

// HistoricalFilter selects archive rows. Nil fields do not filter.
type HistoricalFilter struct {
	Matched *bool
	Synced  *bool
	// BookHash restricts to one document.
	BookHash string
	Limit    int
}

// HistoricalStats summarises the archive.
type HistoricalStats struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Synced    int `json:"synced"`
}

// ActiveSession is the in-memory record of the currently open document.
type ActiveSession struct {
	Locator        string    `json:"locator"`
	ResolvedBookID *int64    `json:"resolved_book_id,omitempty"`
	ContentHash    string    `json:"content_hash"`
	Title          string    `json:"title,omitempty"`
	SourceBookID   *int64    `json:"source_book_id,omitempty"`
	StartTime      time.Time `json:"start_time"`
	StartProgress  float64   `json:"start_progress"`
	StartLocation  string    `json:"start_location"`
	StartPage      int       `json:"start_page"`
	BookType       string    `json:"book_type"`
}

// SessionPayload is the wire form of one session.
type SessionPayload struct {
	BookID          int64     `json:"bookId"`
	BookType        string    `json:"bookType"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationSeconds int64     `json:"durationSeconds"`
	StartProgress   float64   `json:"startProgress"`
	EndProgress     float64   `json:"endProgress"`
	ProgressDelta   float64   `json:"progressDelta"`
	StartLocation   string    `json:"startLocation"`
	EndLocation     string    `json:"endLocation"`
}

// BatchPayload is the wire form of a batch upload (at most 100 sessions).
type BatchPayload struct {
	BookID   int64            `json:"bookId"`
	BookType string           `json:"bookType"`
	Sessions []SessionPayload `json:"sessions"`
}
