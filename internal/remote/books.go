// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tomtom215/folio/internal/models"
)

// BookByHash looks a document up by its content fingerprint. A missing
// book is a KindAmbiguousNotFound error.
func (c *Client) BookByHash(ctx context.Context, hash string) (*models.BookRecord, error) {
	var book models.BookRecord
	err := c.do(ctx, &request{
		method:   http.MethodGet,
		path:     "/books/by-hash/" + url.PathEscape(hash),
		endpoint: "books_by_hash",
		authed:   true,
	}, &book)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// SearchISBN returns catalog entries carrying isbn, best first.
func (c *Client) SearchISBN(ctx context.Context, isbn string) ([]models.BookCandidate, error) {
	return c.search(ctx, "isbn", isbn, "books_isbn")
}

// SearchTitle returns fuzzy title matches ranked by score.
func (c *Client) SearchTitle(ctx context.Context, title string) ([]models.BookCandidate, error) {
	return c.search(ctx, "title", title, "books_title")
}

func (c *Client) search(ctx context.Context, key, value, endpoint string) ([]models.BookCandidate, error) {
	var out []models.BookCandidate
	err := c.do(ctx, &request{
		method:   http.MethodGet,
		path:     "/books",
		query:    url.Values{key: []string{value}},
		endpoint: endpoint,
		authed:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
