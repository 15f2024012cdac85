// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

// Candidates returns ranked title-search matches for the document at
// locator. They are suggestions for the user to confirm, never applied.
func (e *Engine) Candidates(ctx context.Context, locator string) ([]models.BookCandidate, error) {
	if locator == "" {
		return nil, syncerr.Validation("candidates", "locator is required")
	}
	if !e.remoteUsable() {
		return nil, syncerr.New(syncerr.KindOffline, "candidates", errors.New("remote unavailable"))
	}

	title := ""
	entry, err := e.db.IdentityByLocator(ctx, locator)
	switch {
	case err == nil:
		title = models.Deref(entry.Title)
	case !errors.Is(err, database.ErrNotFound):
		return nil, syncerr.Storage("candidates", err)
	}
	if title == "" {
		title = titleFromLocator(locator)
	}
	return e.resolver.Candidates(ctx, title)
}

// titleFromLocator turns "/books/The Left Hand of Darkness.epub" into
// "The Left Hand of Darkness".
func titleFromLocator(locator string) string {
	base := filepath.Base(locator)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(strings.NewReplacer("_", " ", ".", " ").Replace(base))
}

// ConfirmResult reports what a confirmed match changed.
type ConfirmResult struct {
	BookID     int64  `json:"book_id"`
	BookHash   string `json:"book_hash,omitempty"`
	Pending    int64  `json:"pending"`
	Historical int64  `json:"historical"`

	// Sync is the automatic upload of the newly matched archive rows.
	Sync *SyncReport `json:"sync,omitempty"`
}

// ConfirmMatch applies a user-selected book id to the document at locator:
// the identity cache, queued sessions and unsynced archive rows all take it.
func (e *Engine) ConfirmMatch(ctx context.Context, locator string, bookID int64) (*ConfirmResult, error) {
	log := logging.Ctx(ctx)

	hash := ""
	entry, err := e.db.IdentityByLocator(ctx, locator)
	switch {
	case err == nil:
		hash = models.Deref(entry.ContentHash)
	case !errors.Is(err, database.ErrNotFound):
		return nil, syncerr.Storage("confirm match", err)
	}
	if hash == "" && locator != "" {
		if h, ferr := e.fingerprint(locator); ferr == nil {
			hash = h
		} else {
			log.Debug().Err(ferr).Str("locator", locator).Msg("Could not fingerprint confirmed document")
		}
	}

	if err := e.resolver.Confirm(ctx, locator, hash, bookID); err != nil {
		return nil, err
	}
	result := &ConfirmResult{BookID: bookID, BookHash: hash}

	if hash != "" {
		if result.Pending, err = e.db.AssignBookIDForHash(ctx, hash, bookID); err != nil {
			return nil, syncerr.Storage("confirm match", err)
		}
		if result.Historical, err = e.db.MatchHistoricalByHash(ctx, hash, bookID); err != nil {
			return nil, syncerr.Storage("confirm match", err)
		}
	}
	if e.active != nil && e.active.Locator == locator {
		e.active.ResolvedBookID = models.Int64Ptr(bookID)
	}

	log.Info().
		Str("locator", locator).
		Int64("book_id", bookID).
		Int64("pending", result.Pending).
		Int64("historical", result.Historical).
		Msg("Match confirmed")

	if result.Historical > 0 && e.autoSync() {
		report, err := e.ResyncHistorical(ctx)
		switch {
		case errors.Is(err, ErrBusy):
		case err != nil:
			log.Warn().Err(err).Msg("Sync after match failed")
		default:
			result.Sync = report
		}
	}
	return result, nil
}
