// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/folio/internal/engine"
	"github.com/tomtom215/folio/internal/validation"
)

// maxBodyBytes bounds request payloads; events are a few hundred bytes.
const maxBodyBytes = 64 << 10

// Handler serves the bridge endpoints. Every engine call is submitted to
// the engine loop.
type Handler struct {
	loop      *engine.Loop
	engine    *engine.Engine
	startTime time.Time
}

// NewHandler creates a handler for eng, which must be driven by loop.
func NewHandler(loop *engine.Loop, eng *engine.Engine) *Handler {
	return &Handler{
		loop:      loop,
		engine:    eng,
		startTime: time.Now(),
	}
}

// run executes fn on the engine loop and writes its result. The payload is
// encoded on the loop as well, since reports returned by the engine keep
// changing while its tasks tick.
//
// The engine work is detached from request cancellation: a close event
// must still be queued when the host hangs up early.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) (any, error)) {
	rw := NewResponseWriter(w, r)
	ctx := context.WithoutCancel(r.Context())

	body, err := engine.Call(ctx, h.loop, func(ctx context.Context) (json.RawMessage, error) {
		data, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(data)
	})
	if err != nil {
		respondError(rw, r, err)
		return
	}
	rw.Success(body)
}

// decode reads a JSON body into v and validates it. It writes the error
// response and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	rw := NewResponseWriter(w, r)
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			rw.BadRequest("request body is required")
			return false
		}
		rw.BadRequest("invalid JSON: " + err.Error())
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, verr.Error(), verr.Fields)
		return false
	}
	return true
}

// Health reports that the bridge is up. It never waits for the engine loop.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	})
	if err != nil {
		respondError(NewResponseWriter(w, r), r, err)
		return
	}
	NewResponseWriter(w, r).Success(body)
}
