// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package syncerr defines the failure taxonomy shared by every sync component.
//
// Callers branch on Kind, never on error strings:
//
//	if syncerr.Is(err, syncerr.KindOffline) {
//	    return // the queue keeps the row; next pass retries
//	}
package syncerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindOffline means the remote could not be reached (DNS, dial, timeout, open breaker).
	KindOffline
	// KindAuth means credentials were rejected (401 after one refresh).
	KindAuth
	// KindAmbiguousNotFound is a 404: either the endpoint or the record is missing.
	KindAmbiguousNotFound
	// KindPermission is a 403.
	KindPermission
	// KindValidation means the input was rejected locally or with a 4xx.
	KindValidation
	// KindServer is a 5xx or an undecodable response.
	KindServer
	// KindStorage is a local persistence failure.
	KindStorage
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindOffline:
		return "offline"
	case KindAuth:
		return "auth"
	case KindAmbiguousNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "POST /reading-sessions/batch".
	Op string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Storage wraps a persistence failure.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// Validation reports locally rejected input.
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg)}
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(op string, status int, err error) *Error {
	return &Error{Kind: KindForStatus(status), Op: op, Status: status, Err: err}
}

// FromTransport classifies an error returned before any response arrived.
func FromTransport(op string, err error) *Error {
	kind := KindOffline
	if errors.Is(err, context.Canceled) {
		kind = KindUnknown
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindForStatus maps an HTTP status to a Kind. 2xx maps to KindUnknown.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindPermission
	case status == http.StatusNotFound:
		return KindAmbiguousNotFound
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindUnknown
	}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
