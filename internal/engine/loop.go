// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"fmt"

	"github.com/tomtom215/folio/internal/logging"
)

type job struct {
	ctx  context.Context
	fn   func(context.Context)
	done chan struct{}
	err  error
}

// Loop serializes work onto one goroutine. It implements suture.Service.
type Loop struct {
	work chan *job
}

// NewLoop creates a loop. Submitted work blocks until Serve is running.
func NewLoop() *Loop {
	return &Loop{work: make(chan *job)}
}

// Serve runs submitted work until ctx is canceled.
func (l *Loop) Serve(ctx context.Context) error {
	logging.Debug().Msg("Engine loop started")
	for {
		select {
		case <-ctx.Done():
			logging.Debug().Msg("Engine loop stopped")
			return ctx.Err()
		case j := <-l.work:
			l.run(j)
		}
	}
}

func (l *Loop) run(j *job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			j.err = fmt.Errorf("engine loop: panic: %v", r)
			logging.Error().Interface("panic", r).Msg("Recovered panic in engine loop")
		}
	}()
	j.fn(j.ctx)
}

// Do runs fn on the loop and waits for it. Work that started is never
// interrupted; ctx only bounds the wait for a free loop.
func (l *Loop) Do(ctx context.Context, fn func(context.Context)) error {
	j := &job{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case l.work <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-j.done
	return j.err
}

// String returns the service name for logging.
func (l *Loop) String() string {
	return "engine-loop"
}

// Call runs fn on loop and returns its results.
func Call[T any](ctx context.Context, loop *Loop, fn func(context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if loopErr := loop.Do(ctx, func(ctx context.Context) { out, err = fn(ctx) }); loopErr != nil {
		return out, loopErr
	}
	return out, err
}
