// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package hoststats

import "time"

// ExtractStats holds statistics about an extraction run.
type ExtractStats struct {
	// TotalBooks is the number of books with observations.
	TotalBooks int64

	// ProcessedBooks counts books already walked.
	ProcessedBooks int64

	// Inserted counts new historical rows.
	Inserted int64

	// Duplicates counts sessions already present in the archive.
	Duplicates int64

	// Matched and Unmatched count inserted rows by cache resolution.
	Matched   int64
	Unmatched int64

	// Errors counts books that failed and were skipped.
	Errors int64

	StartTime time.Time
	EndTime   time.Time

	// LastBookID is the id of the last processed host book.
	LastBookID int64
}

// Progress returns the extraction progress as a percentage (0-100).
func (s *ExtractStats) Progress() float64 {
	if s.TotalBooks == 0 {
		return 0
	}
	return float64(s.ProcessedBooks) / float64(s.TotalBooks) * 100
}

// Duration returns how long the extraction ran.
func (s *ExtractStats) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// ProgressSummary is the JSON view of an extraction.
type ProgressSummary struct {
	Status         string    `json:"status"`
	Progress       float64   `json:"progress"`
	TotalBooks     int64     `json:"total_books"`
	ProcessedBooks int64     `json:"processed_books"`
	Inserted       int64     `json:"inserted"`
	Duplicates     int64     `json:"duplicates"`
	Matched        int64     `json:"matched"`
	Unmatched      int64     `json:"unmatched"`
	Errors         int64     `json:"errors"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	StartTime      time.Time `json:"start_time"`
	LastBookID     int64     `json:"last_book_id"`
}

// ToSummary converts ExtractStats to a ProgressSummary.
func (s *ExtractStats) ToSummary(running bool) *ProgressSummary {
	summary := &ProgressSummary{
		Progress:       s.Progress(),
		TotalBooks:     s.TotalBooks,
		ProcessedBooks: s.ProcessedBooks,
		Inserted:       s.Inserted,
		Duplicates:     s.Duplicates,
		Matched:        s.Matched,
		Unmatched:      s.Unmatched,
		Errors:         s.Errors,
		ElapsedSeconds: s.Duration().Seconds(),
		StartTime:      s.StartTime,
		LastBookID:     s.LastBookID,
	}

	switch {
	case running:
		summary.Status = "running"
	case s.EndTime.IsZero():
		summary.Status = "pending"
	default:
		summary.Status = "completed"
	}
	return summary
}
