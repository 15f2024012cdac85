// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/folio/internal/engine"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/syncerr"
)

// Ticker is the part of the engine the task ticker drives.
type Ticker interface {
	Tick(ctx context.Context) bool
}

// Syncer is the part of the engine the sync scheduler drives.
type Syncer interface {
	SyncPending(ctx context.Context) (*engine.SyncReport, error)
}

// TaskTickerService advances the engine task queue by one step per interval.
// Each step runs on the engine loop, so host events interleave with long
// extractions and re-matches.
type TaskTickerService struct {
	loop     *engine.Loop
	target   Ticker
	interval time.Duration
}

// NewTaskTickerService creates the ticker. A non-positive interval means 200ms.
func NewTaskTickerService(loop *engine.Loop, target Ticker, interval time.Duration) *TaskTickerService {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &TaskTickerService{loop: loop, target: target, interval: interval}
}

// Serve implements suture.Service.
func (s *TaskTickerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.loop.Do(ctx, func(ctx context.Context) { s.target.Tick(ctx) }); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// A panicking step is recovered by the loop; keep ticking.
				logging.Warn().Err(err).Msg("Task tick failed")
			}
		}
	}
}

// String implements fmt.Stringer.
func (s *TaskTickerService) String() string {
	return "task-ticker"
}

// SyncSchedulerService runs a pending-queue sync pass every interval.
type SyncSchedulerService struct {
	loop     *engine.Loop
	target   Syncer
	interval time.Duration
}

// NewSyncSchedulerService creates the scheduler. interval must be positive.
func NewSyncSchedulerService(loop *engine.Loop, target Syncer, interval time.Duration) *SyncSchedulerService {
	return &SyncSchedulerService{loop: loop, target: target, interval: interval}
}

// Serve implements suture.Service.
func (s *SyncSchedulerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *SyncSchedulerService) runPass(ctx context.Context) {
	report, err := engine.Call(ctx, s.loop, s.target.SyncPending)
	log := logging.Ctx(ctx)
	switch {
	case err == nil:
		if report.Attempted > 0 {
			log.Debug().
				Int("synced", report.Synced).
				Int("remaining", report.Remaining).
				Bool("skipped", report.Skipped).
				Msg("Scheduled sync pass finished")
		}
	case errors.Is(err, engine.ErrBusy), ctx.Err() != nil:
	case syncerr.Is(err, syncerr.KindValidation):
		log.Debug().Err(err).Msg("Scheduled sync not possible")
	default:
		log.Warn().Err(err).Msg("Scheduled sync pass failed")
	}
}

// String implements fmt.Stringer.
func (s *SyncSchedulerService) String() string {
	return "sync-scheduler"
}
