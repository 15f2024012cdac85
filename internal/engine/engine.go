// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/folio/internal/cache"
	"github.com/tomtom215/folio/internal/config"
	"github.com/tomtom215/folio/internal/database"
	"github.com/tomtom215/folio/internal/hoststats"
	"github.com/tomtom215/folio/internal/identity"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/models"
	"github.com/tomtom215/folio/internal/remote"
	"github.com/tomtom215/folio/internal/segment"
	"github.com/tomtom215/folio/internal/tasks"
	"github.com/tomtom215/folio/internal/upload"
)

// Deps are the engine's collaborators. Config and DB are required; the rest
// default from them.
type Deps struct {
	Config *config.Config
	DB     *database.DB

	// Remote is nil when no server is configured.
	Remote   remote.API
	Resolver *identity.Resolver
	Uploader *upload.Uploader
	Tasks    *tasks.Queue

	// Fingerprint hashes a document; identity.Fingerprint by default.
	Fingerprint func(path string) (string, error)

	// OpenStats opens the host statistics store; hoststats.NewReader by default.
	OpenStats func(path string) (*hoststats.Reader, error)

	Now func() time.Time
}

// Engine coordinates the sync components. See the package documentation
// for its threading rules.
type Engine struct {
	cfg         *config.Config
	db          *database.DB
	api         remote.API
	resolver    *identity.Resolver
	tracker     *segment.Tracker
	uploader    *upload.Uploader
	tasks       *tasks.Queue
	fingerprint func(string) (string, error)
	openStats   func(string) (*hoststats.Reader, error)
	now         func() time.Time

	state  State
	online bool

	active    *models.ActiveSession
	openDoc   models.Document
	suspended *suspendedDocument

	lastSync    *SyncReport
	lastRematch *RematchReport
	extractor   *hoststats.Extractor
}

// New creates an engine.
func New(deps Deps) (*Engine, error) {
	if deps.Config == nil || deps.DB == nil {
		return nil, errors.New("engine: config and database are required")
	}
	cfg := deps.Config

	e := &Engine{
		cfg:         cfg,
		db:          deps.DB,
		api:         deps.Remote,
		resolver:    deps.Resolver,
		uploader:    deps.Uploader,
		tasks:       deps.Tasks,
		fingerprint: deps.Fingerprint,
		openStats:   deps.OpenStats,
		now:         deps.Now,
		online:      true,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.fingerprint == nil {
		e.fingerprint = identity.Fingerprint
	}
	if e.openStats == nil {
		e.openStats = hoststats.NewReader
	}
	if e.tasks == nil {
		e.tasks = tasks.New()
	}
	if e.resolver == nil {
		negative := cache.NewNegativeCache(cfg.Identity.NegativeCapacity, cfg.Identity.NegativeTTL)
		e.resolver = identity.NewResolver(e.db, e.api, negative)
	}
	if e.uploader == nil && e.api != nil {
		e.uploader = upload.New(e.api, cfg.Sync.BatchSize)
	}

	e.tracker = segment.NewTracker(cfg.Tracking, segment.Deps{
		Resolver:    e.resolver,
		Queue:       e.db,
		Fingerprint: e.fingerprint,
		Online:      e.remoteUsable,
	})
	return e, nil
}

// Tasks returns the engine's task queue.
func (e *Engine) Tasks() *tasks.Queue {
	return e.tasks
}

// Tick advances the task queue by one step.
func (e *Engine) Tick(ctx context.Context) bool {
	return e.tasks.Tick(ctx)
}

// CancelTasks drops queued work. A chunk already running completes.
func (e *Engine) CancelTasks(ctx context.Context) int {
	return e.tasks.Cancel(ctx)
}

// SetOnline records host connectivity. While offline no remote calls are made.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	if e.online != online {
		logging.Ctx(ctx).Info().Bool("online", online).Msg("Network status changed")
	}
	e.online = online
}

// Online reports the last known host connectivity.
func (e *Engine) Online() bool {
	return e.online
}

// remoteUsable reports whether remote calls may be attempted.
func (e *Engine) remoteUsable() bool {
	return e.online && e.api != nil
}

// autoSync reports whether opportunistic passes are allowed.
func (e *Engine) autoSync() bool {
	return !e.cfg.Tracking.ManualOnly && e.remoteUsable()
}
