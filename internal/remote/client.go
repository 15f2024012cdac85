// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package remote

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // the server's basic-hash scheme is MD5
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/syncerr"
)

// API is the remote catalog/tracking surface used by the sync components.
// Both Client and CircuitBreakerClient implement it.
type API interface {
	BookByHash(ctx context.Context, hash string) (*models.BookRecord, error)
	SearchISBN(ctx context.Context, isbn string) ([]models.BookCandidate, error)
	SearchTitle(ctx context.Context, title string) ([]models.BookCandidate, error)
	SubmitSession(ctx context.Context, session *models.SessionPayload) error
	SubmitBatch(ctx context.Context, batch *models.BatchPayload) error
	Health(ctx context.Context) error
	CheckAuth(ctx context.Context) error
}

// TokenSource supplies bearer tokens for authenticated requests.
type TokenSource interface {
	// Token returns a usable token, logging in when force is set or the
	// cached one is missing or close to expiry.
	Token(ctx context.Context, force bool) (string, error)
	// Invalidate discards the cached token.
	Invalidate(ctx context.Context) error
}

var _ API = (*Client)(nil)

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 512

// Client talks to the remote server.
type Client struct {
	baseURL    string
	cfg        *config.RemoteConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
}

// NewClient creates a client for cfg.URL. tokens may be nil in basic mode
// and can be set later with SetTokenSource.
func NewClient(cfg *config.RemoteConfig, tokens TokenSource) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		cfg:     cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens: tokens,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// SetTokenSource installs the bearer token source. The token store logs in
// through this client, so it is wired after construction.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// SetHTTPClient replaces the underlying HTTP client. Tests only.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// request describes one call.
type request struct {
	method   string
	path     string
	query    url.Values
	body     any
	endpoint string // metrics label
	authed   bool
}

// do executes req, decoding a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req *request, out any) error {
	op := req.method + " " + req.path

	var payload []byte
	if req.body != nil {
		var err error
		payload, err = json.Marshal(req.body)
		if err != nil {
			return syncerr.New(syncerr.KindValidation, op, fmt.Errorf("encode body: %w", err))
		}
	}

	resp, err := c.send(ctx, req, payload, false)
	if err != nil {
		return classifyTransport(op, err)
	}

	if req.authed && c.bearer() && isAuthStatus(resp.StatusCode) {
		drain(resp)
		logging.Ctx(ctx).Debug().Str("op", op).Int("status", resp.StatusCode).Msg("Token rejected, refreshing")
		if c.tokens != nil {
			if err := c.tokens.Invalidate(ctx); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("Failed to invalidate cached token")
			}
		}
		resp, err = c.send(ctx, req, payload, true)
		if err != nil {
			return classifyTransport(op, err)
		}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort
		return syncerr.FromStatus(op, resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return syncerr.New(syncerr.KindServer, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// send performs a single attempt. Token errors come back already classified.
func (c *Client) send(ctx context.Context, req *request, payload []byte, forceToken bool) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, syncerr.Validation(req.method+" "+req.path, "remote url not configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.authed {
		if err := c.authorize(ctx, httpReq, forceToken); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordRemoteRequest(req.endpoint, 0, time.Since(start))
		return nil, err
	}
	metrics.RecordRemoteRequest(req.endpoint, resp.StatusCode, time.Since(start))
	return resp, nil
}

// authorize sets the credential headers for the configured auth mode.
func (c *Client) authorize(ctx context.Context, req *http.Request, force bool) error {
	if !c.bearer() {
		req.Header.Set("X-Auth-User", c.cfg.Username)
		req.Header.Set("X-Auth-Key", PasswordHash(c.cfg.Password))
		return nil
	}
	if c.tokens == nil {
		return syncerr.New(syncerr.KindAuth, "token", errors.New("no token source configured"))
	}
	tok, err := c.tokens.Token(ctx, force)
	if err != nil {
		if syncerr.KindOf(err) == syncerr.KindUnknown {
			return syncerr.New(syncerr.KindAuth, "token", err)
		}
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

func (c *Client) bearer() bool {
	return c.cfg.AuthMode != config.AuthModeBasic
}

// PasswordHash returns the hex MD5 digest sent as X-Auth-Key in basic mode.
func PasswordHash(password string) string {
	sum := md5.Sum([]byte(password)) //nolint:gosec // protocol requirement
	return hex.EncodeToString(sum[:])
}

// classifyTransport keeps already classified errors (token failures) and
// treats everything else as a transport failure.
func classifyTransport(op string, err error) error {
	var se *syncerr.Error
	if errors.As(err, &se) {
		return err
	}
	return syncerr.FromTransport(op, err)
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // connection reuse only
	_ = resp.Body.Close()                                          //nolint:errcheck // read-only body
}
