// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/folio/internal/syncerr"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out loginResponse
	err := c.do(ctx, &request{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     loginRequest{Username: username, Password: password},
		endpoint: "login",
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", syncerr.New(syncerr.KindServer, "POST /auth/login", errors.New("empty token in response"))
	}
	return out.Token, nil
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, &request{
		method:   http.MethodGet,
		path:     "/health",
		endpoint: "health",
	}, nil)
}

// CheckAuth verifies the configured credentials.
func (c *Client) CheckAuth(ctx context.Context) error {
	return c.do(ctx, &request{
		method:   http.MethodGet,
		path:     "/users/auth",
		endpoint: "users_auth",
		authed:   true,
	}, nil)
}
