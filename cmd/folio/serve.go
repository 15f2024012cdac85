// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/folio/internal/api"
	"github.com/tomtom215/folio/internal/engine"
	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/supervisor"
	"github.com/tomtom215/folio/internal/supervisor/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync engine with its local HTTP bridge",
	Long: `serve runs the engine loop under a supervisor tree. Host events arrive
through the local HTTP bridge; queued sessions are uploaded every sync.interval
and long jobs advance one step per tasks.tick_interval.`,
	RunE: withApp(runServe),
}

func runServe(ctx context.Context, _ *cobra.Command, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		return err
	}

	cfg := a.cfg
	loop := engine.NewLoop()
	tree.AddEngineService(loop)
	tree.AddEngineService(services.NewTaskTickerService(loop, a.engine, cfg.Tasks.TickInterval))

	switch {
	case cfg.Sync.Interval <= 0:
		logging.Info().Msg("Periodic sync disabled")
	case cfg.Tracking.ManualOnly:
		logging.Info().Msg("Manual-only mode, periodic sync disabled")
	default:
		tree.AddEngineService(services.NewSyncSchedulerService(loop, a.engine, cfg.Sync.Interval))
	}

	if cfg.Server.Enabled {
		server := &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:           api.NewRouter(api.NewHandler(loop, a.engine), &cfg.Server),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.Server.Timeout,
			IdleTimeout:       60 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	} else {
		logging.Info().Msg("Local HTTP bridge disabled")
	}

	logging.Info().
		Str("version", version).
		Bool("remote", cfg.RemoteConfigured()).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Starting Folio")

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Folio stopped")
	return nil
}
