// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/folio/internal/engine"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/syncerr"
)

// errorResponse is the HTTP rendition of an engine error.
type errorResponse struct {
	Status int
	Code   string
}

// classify maps engine and sync errors onto HTTP statuses. Remote failures
// become 502/503: the bridge itself worked, the catalog server did not.
func classify(err error) errorResponse {
	switch {
	case errors.Is(err, engine.ErrBusy):
		return errorResponse{http.StatusConflict, ErrCodeBusy}
	case errors.Is(err, engine.ErrNoActiveSession):
		return errorResponse{http.StatusConflict, ErrCodeNoActiveSession}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errorResponse{http.StatusServiceUnavailable, ErrCodeServiceUnavailable}
	}

	switch syncerr.KindOf(err) {
	case syncerr.KindValidation:
		return errorResponse{http.StatusBadRequest, ErrCodeValidationFailed}
	case syncerr.KindAmbiguousNotFound:
		return errorResponse{http.StatusNotFound, ErrCodeNotFound}
	case syncerr.KindOffline:
		return errorResponse{http.StatusServiceUnavailable, ErrCodeOffline}
	case syncerr.KindAuth:
		return errorResponse{http.StatusBadGateway, ErrCodeRemoteAuth}
	case syncerr.KindPermission:
		return errorResponse{http.StatusBadGateway, ErrCodeRemotePermission}
	case syncerr.KindServer:
		return errorResponse{http.StatusBadGateway, ErrCodeRemoteError}
	case syncerr.KindStorage:
		return errorResponse{http.StatusInternalServerError, ErrCodeStorageError}
	default:
		return errorResponse{http.StatusInternalServerError, ErrCodeInternalError}
	}
}

// respondError writes err in the envelope, logging server-side failures.
func respondError(rw *ResponseWriter, r *http.Request, err error) {
	res := classify(err)
	if res.Status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("code", res.Code).Msg("API error")
	}
	rw.Error(res.Status, res.Code, err.Error())
}
