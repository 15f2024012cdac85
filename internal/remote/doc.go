// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package remote implements the HTTP client for the catalog/tracking server.

# Endpoints

	GET  /books/by-hash/{hash}      book record for a content fingerprint
	GET  /books?isbn=... | ?title=  ranked candidates
	POST /auth/login                bearer token
	POST /reading-sessions          one session
	POST /reading-sessions/batch    up to 100 sessions of one book
	GET  /health                    liveness
	GET  /users/auth                credential check

# Authentication

In bearer mode every authenticated request carries a token obtained from a
TokenSource. A 401 or 403 invalidates the token, forces a fresh login and
retries the request exactly once. A second 401 is reported as KindAuth and
a second 403 as KindPermission. Basic mode sends X-Auth-User and X-Auth-Key
(hex MD5 of the password) and has no token lifecycle.

# Errors

Every failure is a *syncerr.Error classified by HTTP status or transport
failure. The client never retries on its own; the pending queue does.

# Resilience

Requests are paced by a token bucket (golang.org/x/time/rate).
CircuitBreakerClient wraps Client with sony/gobreaker; only offline and
server failures count against the breaker, and an open breaker is reported
as KindOffline.
*/
package remote
