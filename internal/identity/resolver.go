// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/tomtom215/folio/internal/cache"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/remote"
	"github.com/tomtom215/folio/internal/syncerr"
)

// Strategy names the cascade step that produced a result.
type Strategy string

const (
	StrategyCacheHash    Strategy = "cache_hash"
	StrategyCacheLocator Strategy = "cache_locator"
	StrategyCacheISBN    Strategy = "cache_isbn"
	StrategyRemoteISBN   Strategy = "isbn"
	StrategyRemoteHash   Strategy = "remote_hash"
	StrategyTitle        Strategy = "title_candidates"
	StrategyMiss         Strategy = "miss"
)

// Negative cache namespaces.
const (
	missHash  = "hash"
	missISBN  = "isbn"
	missTitle = "title"
)

// Cache is the identity cache. *database.DB implements it.
type Cache interface {
	IdentityByLocator(ctx context.Context, locator string) (*models.IdentityCacheEntry, error)
	IdentityByHash(ctx context.Context, hash string) (*models.IdentityCacheEntry, error)
	IdentityByISBN(ctx context.Context, isbn string) (*models.IdentityCacheEntry, error)
	UpsertIdentity(ctx context.Context, e *models.IdentityCacheEntry) error
	BackfillIdentityByHash(ctx context.Context, hash string, e *models.IdentityCacheEntry) error
	ForgetRemoteBookID(ctx context.Context, hash string) error
}

// Request describes the document to resolve.
type Request struct {
	Locator string
	Hash    string
	Title   string
	Author  string
	ISBN10  string
	ISBN13  string

	// Online permits remote lookups.
	Online bool
	// WithCandidates runs the title search when nothing else matched.
	WithCandidates bool
}

// Result is the outcome of a resolution.
type Result struct {
	BookID     *int64
	Strategy   Strategy
	Candidates []models.BookCandidate
}

// Resolved reports whether a remote book id was found.
func (r *Result) Resolved() bool {
	return r != nil && r.BookID != nil
}

// Resolver runs the identity cascade.
type Resolver struct {
	cache    Cache
	api      remote.API
	negative *cache.NegativeCache
}

// NewResolver creates a resolver. api may be nil when no remote is configured.
func NewResolver(c Cache, api remote.API, negative *cache.NegativeCache) *Resolver {
	return &Resolver{cache: c, api: api, negative: negative}
}

// Resolve runs the cascade for req. Remote errors other than "not found"
// are returned together with whatever the local steps produced.
func (r *Resolver) Resolve(ctx context.Context, req *Request) (*Result, error) {
	res, entry, err := r.fromCache(ctx, req)
	if err != nil || res.Resolved() {
		return r.record(res), err
	}

	isbns := candidateISBNs(req, entry)
	for _, isbn := range isbns {
		hit, err := r.cache.IdentityByISBN(ctx, isbn)
		if err == nil && hit.RemoteBookID != nil {
			r.backfill(ctx, req, &models.IdentityCacheEntry{RemoteBookID: hit.RemoteBookID})
			return r.record(&Result{BookID: hit.RemoteBookID, Strategy: StrategyCacheISBN}), nil
		}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return r.record(res), syncerr.Storage("identity by isbn", err)
		}
	}

	if !req.Online || r.api == nil {
		return r.record(res), nil
	}

	for _, isbn := range isbns {
		if r.negative.Missing(missISBN, isbn) {
			continue
		}
		found, err := r.api.SearchISBN(ctx, isbn)
		if err != nil && !syncerr.Is(err, syncerr.KindAmbiguousNotFound) {
			return r.record(res), err
		}
		if len(found) == 0 {
			r.negative.MarkMissing(missISBN, isbn)
			continue
		}
		book := found[0].BookRecord
		r.backfill(ctx, req, book.CacheEntry(req.Locator, req.Hash))
		return r.record(&Result{BookID: models.Int64Ptr(book.ID), Strategy: StrategyRemoteISBN}), nil
	}

	if req.Hash != "" && !r.negative.Missing(missHash, req.Hash) {
		book, err := r.api.BookByHash(ctx, req.Hash)
		switch {
		case err == nil:
			r.backfill(ctx, req, book.CacheEntry(req.Locator, req.Hash))
			return r.record(&Result{BookID: models.Int64Ptr(book.ID), Strategy: StrategyRemoteHash}), nil
		case syncerr.Is(err, syncerr.KindAmbiguousNotFound):
			r.negative.MarkMissing(missHash, req.Hash)
		default:
			return r.record(res), err
		}
	}

	if req.WithCandidates {
		cands, err := r.searchTitle(ctx, req.Title)
		if err != nil {
			return r.record(res), err
		}
		if len(cands) > 0 {
			return r.record(&Result{Strategy: StrategyTitle, Candidates: cands}), nil
		}
	}

	return r.record(res), nil
}

// fromCache runs step 1. The returned entry is the locator row, if any,
// for use by later steps.
func (r *Resolver) fromCache(ctx context.Context, req *Request) (*Result, *models.IdentityCacheEntry, error) {
	miss := &Result{Strategy: StrategyMiss}

	if req.Hash != "" {
		hit, err := r.cache.IdentityByHash(ctx, req.Hash)
		switch {
		case err == nil && hit.RemoteBookID != nil:
			if req.Locator != "" && hit.Locator != req.Locator {
				r.backfill(ctx, req, &models.IdentityCacheEntry{RemoteBookID: hit.RemoteBookID})
			}
			return &Result{BookID: hit.RemoteBookID, Strategy: StrategyCacheHash}, hit, nil
		case err != nil && !errors.Is(err, database.ErrNotFound):
			return miss, nil, syncerr.Storage("identity by hash", err)
		}
	}

	if req.Locator == "" {
		return miss, nil, nil
	}
	entry, err := r.cache.IdentityByLocator(ctx, req.Locator)
	if errors.Is(err, database.ErrNotFound) {
		return miss, nil, nil
	}
	if err != nil {
		return miss, nil, syncerr.Storage("identity by locator", err)
	}
	if entry.RemoteBookID != nil && entry.ContentHash != nil && *entry.ContentHash == req.Hash {
		return &Result{BookID: entry.RemoteBookID, Strategy: StrategyCacheLocator}, entry, nil
	}
	return miss, entry, nil
}

// ResolveCached is the network-free cascade used for bulk extraction:
// content hash, then ISBN, then locator.
func (r *Resolver) ResolveCached(ctx context.Context, hash, locator string) (*int64, error) {
	var isbn string
	if hash != "" {
		hit, err := r.cache.IdentityByHash(ctx, hash)
		switch {
		case err == nil && hit.RemoteBookID != nil:
			metrics.RecordResolverResult(string(StrategyCacheHash))
			return hit.RemoteBookID, nil
		case err == nil:
			isbn = hit.PreferredISBN()
		case !errors.Is(err, database.ErrNotFound):
			return nil, syncerr.Storage("identity by hash", err)
		}
	}

	if isbn != "" {
		hit, err := r.cache.IdentityByISBN(ctx, isbn)
		switch {
		case err == nil:
			metrics.RecordResolverResult(string(StrategyCacheISBN))
			return hit.RemoteBookID, nil
		case !errors.Is(err, database.ErrNotFound):
			return nil, syncerr.Storage("identity by isbn", err)
		}
	}

	if locator != "" {
		entry, err := r.cache.IdentityByLocator(ctx, locator)
		switch {
		case err == nil && entry.RemoteBookID != nil &&
			(entry.ContentHash == nil || hash == "" || *entry.ContentHash == hash):
			metrics.RecordResolverResult(string(StrategyCacheLocator))
			return entry.RemoteBookID, nil
		case err != nil && !errors.Is(err, database.ErrNotFound):
			return nil, syncerr.Storage("identity by locator", err)
		}
	}

	metrics.RecordResolverResult(string(StrategyMiss))
	return nil, nil
}

// Candidates runs the remote title search for title. Results are ranked by
// the server and must be confirmed by the user.
func (r *Resolver) Candidates(ctx context.Context, title string) ([]models.BookCandidate, error) {
	if r.api == nil {
		return nil, syncerr.Validation("title search", "remote not configured")
	}
	return r.searchTitle(ctx, title)
}

func (r *Resolver) searchTitle(ctx context.Context, title string) ([]models.BookCandidate, error) {
	title = strings.TrimSpace(title)
	if title == "" || r.api == nil {
		return nil, nil
	}
	key := strings.ToLower(title)
	if r.negative.Missing(missTitle, key) {
		return nil, nil
	}
	cands, err := r.api.SearchTitle(ctx, title)
	if err != nil && !syncerr.Is(err, syncerr.KindAmbiguousNotFound) {
		return nil, err
	}
	if len(cands) == 0 {
		r.negative.MarkMissing(missTitle, key)
		return nil, nil
	}
	return cands, nil
}

// Confirm records a user-confirmed match of locator (with content hash) to
// bookID and clears any remembered misses for the document.
func (r *Resolver) Confirm(ctx context.Context, locator, hash string, bookID int64) error {
	if locator == "" {
		return syncerr.Validation("confirm match", "locator is required")
	}
	if bookID <= 0 {
		return syncerr.Validation("confirm match", "book id must be positive")
	}
	entry := &models.IdentityCacheEntry{
		Locator:      locator,
		ContentHash:  models.StringPtr(hash),
		RemoteBookID: models.Int64Ptr(bookID),
	}
	if err := r.cache.UpsertIdentity(ctx, entry); err != nil {
		return syncerr.Storage("confirm match", err)
	}
	if hash != "" {
		if err := r.cache.BackfillIdentityByHash(ctx, hash, &models.IdentityCacheEntry{RemoteBookID: entry.RemoteBookID}); err != nil {
			return syncerr.Storage("confirm match", err)
		}
		r.negative.Forget(missHash, hash)
	}
	return nil
}

// Forget drops the remote id cached for hash after the server reported it
// gone, so the next resolution asks again.
func (r *Resolver) Forget(ctx context.Context, hash string) error {
	if hash == "" {
		return nil
	}
	if err := r.cache.ForgetRemoteBookID(ctx, hash); err != nil {
		return syncerr.Storage("forget remote id", err)
	}
	r.negative.Forget(missHash, hash)
	return nil
}

// Remember stores what the host knows about a document without a remote id.
func (r *Resolver) Remember(ctx context.Context, req *Request) error {
	if req.Locator == "" {
		return nil
	}
	err := r.cache.UpsertIdentity(ctx, &models.IdentityCacheEntry{
		Locator:     req.Locator,
		ContentHash: models.StringPtr(req.Hash),
		Title:       models.StringPtr(req.Title),
		Author:      models.StringPtr(req.Author),
		ISBN10:      models.StringPtr(req.ISBN10),
		ISBN13:      models.StringPtr(req.ISBN13),
	})
	if err != nil {
		return syncerr.Storage("remember identity", err)
	}
	return nil
}

// backfill writes a hit to the locator row and to every row sharing the
// hash. Failures are logged; the resolution itself stands.
func (r *Resolver) backfill(ctx context.Context, req *Request, e *models.IdentityCacheEntry) {
	if req.Locator != "" {
		entry := *e
		entry.Locator = req.Locator
		if entry.ContentHash == nil {
			entry.ContentHash = models.StringPtr(req.Hash)
		}
		if err := r.cache.UpsertIdentity(ctx, &entry); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("locator", req.Locator).Msg("Identity backfill failed")
		}
	}
	if req.Hash != "" {
		if err := r.cache.BackfillIdentityByHash(ctx, req.Hash, e); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("book_hash", req.Hash).Msg("Identity backfill failed")
		}
	}
}

func (r *Resolver) record(res *Result) *Result {
	metrics.RecordResolverResult(string(res.Strategy))
	return res
}

// candidateISBNs lists ISBNs to try, ISBN-13 first, request before cache.
func candidateISBNs(req *Request, entry *models.IdentityCacheEntry) []string {
	var out []string
	add := func(s string) {
		s = normalizeISBN(s)
		if s == "" {
			return
		}
		for _, have := range out {
			if have == s {
				return
			}
		}
		out = append(out, s)
	}
	add(req.ISBN13)
	if entry != nil {
		add(models.Deref(entry.ISBN13))
	}
	add(req.ISBN10)
	if entry != nil {
		add(models.Deref(entry.ISBN10))
	}
	return out
}

// normalizeISBN strips separators and uppercases a trailing X.
func normalizeISBN(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == 'x' || c == 'X':
			b.WriteRune('X')
		}
	}
	out := b.String()
	if len(out) != 10 && len(out) != 13 {
		return ""
	}
	return out
}
