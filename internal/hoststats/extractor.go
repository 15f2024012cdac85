// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package hoststats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/segment"
)

// Store is the archive the extractor writes to. *database.DB implements it.
type Store interface {
	InsertHistorical(ctx context.Context, h *models.HistoricalSession) (bool, error)
	IdentityByHash(ctx context.Context, hash string) (*models.IdentityCacheEntry, error)
}

// CachedResolver resolves identity without network access.
type CachedResolver interface {
	ResolveCached(ctx context.Context, hash, locator string) (*int64, error)
}

// Extractor converts host statistics into historical sessions in steps.
type Extractor struct {
	reader   *Reader
	store    Store
	resolver CachedResolver
	gap      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	running bool
	stats   *ExtractStats
}

// NewExtractor creates an extractor. gap <= 0 uses segment.DefaultGap.
func NewExtractor(reader *Reader, store Store, resolver CachedResolver, gap time.Duration) *Extractor {
	return &Extractor{
		reader:   reader,
		store:    store,
		resolver: resolver,
		gap:      gap,
		now:      time.Now,
		stats:    &ExtractStats{},
	}
}

// Begin counts the books to process and resets the statistics.
func (x *Extractor) Begin(ctx context.Context) error {
	total, err := x.reader.CountBooks(ctx)
	if err != nil {
		return err
	}

	x.mu.Lock()
	x.running = true
	x.stats = &ExtractStats{TotalBooks: total, StartTime: x.now()}
	x.mu.Unlock()

	if earliest, latest, err := x.reader.DateRange(ctx); err == nil && !earliest.IsZero() {
		logging.Ctx(ctx).Info().
			Int64("total_books", total).
			Str("earliest", earliest.Format("2006-01-02")).
			Str("latest", latest.Format("2006-01-02")).
			Msg("Starting history extraction")
	}
	return nil
}

// Step processes up to books books after the last processed one. It
// reports done once no books remain. A failing book is counted and skipped;
// only a failure to list books is returned.
func (x *Extractor) Step(ctx context.Context, books int) (bool, error) {
	x.mu.RLock()
	afterID := x.stats.LastBookID
	x.mu.RUnlock()

	batch, err := x.reader.ListBooks(ctx, afterID, books)
	if err != nil {
		return false, fmt.Errorf("list books: %w", err)
	}
	if len(batch) == 0 {
		x.finish(ctx)
		return true, nil
	}

	for i := range batch {
		b := &batch[i]
		res, err := x.processBook(ctx, b)

		x.mu.Lock()
		x.stats.ProcessedBooks++
		x.stats.LastBookID = b.ID
		if err != nil {
			x.stats.Errors++
		} else {
			x.stats.Inserted += res.inserted
			x.stats.Duplicates += res.duplicates
			x.stats.Matched += res.matched
			x.stats.Unmatched += res.unmatched
		}
		x.mu.Unlock()

		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Int64("source_book_id", b.ID).Msg("Failed to extract book history")
		}
	}

	stats := x.Stats()
	logging.Ctx(ctx).Info().
		Float64("progress_percent", stats.Progress()).
		Int64("processed_books", stats.ProcessedBooks).
		Int64("total_books", stats.TotalBooks).
		Int64("inserted", stats.Inserted).
		Int64("duplicates", stats.Duplicates).
		Msg("Extraction progress")

	if len(batch) < books {
		x.finish(ctx)
		return true, nil
	}
	return false, nil
}

type bookResult struct {
	inserted, duplicates, matched, unmatched int64
}

func (x *Extractor) processBook(ctx context.Context, b *Book) (bookResult, error) {
	var res bookResult

	obs, err := x.reader.Observations(ctx, b)
	if err != nil {
		return res, err
	}
	sessions := segment.Reconstruct(obs, x.gap)
	if len(sessions) == 0 {
		return res, nil
	}

	bookID, err := x.resolver.ResolveCached(ctx, b.MD5, "")
	if err != nil {
		return res, fmt.Errorf("resolve book %d: %w", b.ID, err)
	}
	bookType := x.bookType(ctx, b.MD5)
	matched := bookID != nil
	created := x.now()

	for i := range sessions {
		s := &sessions[i]
		h := &models.HistoricalSession{
			SourceBookID:    b.ID,
			SourceBookTitle: b.Title,
			BookID:          bookID,
			BookHash:        b.MD5,
			BookType:        bookType,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			DurationSeconds: s.DurationSeconds,
			StartProgress:   s.StartProgress,
			EndProgress:     s.EndProgress,
			ProgressDelta:   s.EndProgress - s.StartProgress,
			StartLocation:   s.StartLocation,
			EndLocation:     s.EndLocation,
			CreatedAt:       created,
			Matched:         matched,
		}
		inserted, err := x.store.InsertHistorical(ctx, h)
		if err != nil {
			return res, fmt.Errorf("insert session of book %d: %w", b.ID, err)
		}
		if !inserted {
			res.duplicates++
			continue
		}
		res.inserted++
		if matched {
			res.matched++
		} else {
			res.unmatched++
		}
		metrics.HistoricalSessionsExtracted.WithLabelValues(strconv.FormatBool(matched)).Inc()
	}
	return res, nil
}

// bookType derives the document type from a cached locator for hash.
func (x *Extractor) bookType(ctx context.Context, hash string) string {
	if hash == "" {
		return unknownBookType
	}
	entry, err := x.store.IdentityByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logging.Ctx(ctx).Debug().Err(err).Msg("Identity lookup for book type failed")
		}
		return unknownBookType
	}
	doc := models.Document{Locator: entry.Locator}
	return doc.Type()
}

const unknownBookType = "UNKNOWN"

func (x *Extractor) finish(ctx context.Context) {
	x.mu.Lock()
	if x.running {
		x.running = false
		x.stats.EndTime = x.now()
	}
	stats := *x.stats
	x.mu.Unlock()

	logging.Ctx(ctx).Info().
		Int64("inserted", stats.Inserted).
		Int64("duplicates", stats.Duplicates).
		Int64("matched", stats.Matched).
		Int64("errors", stats.Errors).
		Dur("duration", stats.Duration()).
		Msg("History extraction completed")
}

// Stop ends a run early. Rows already written stay in the archive.
func (x *Extractor) Stop() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.running {
		x.running = false
		x.stats.EndTime = x.now()
	}
}

// Stats returns a copy of the current statistics.
func (x *Extractor) Stats() ExtractStats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return *x.stats
}

// IsRunning reports whether Begin was called and the run has not finished.
func (x *Extractor) IsRunning() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.running
}
