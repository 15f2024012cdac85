// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

/*
Package supervisor provides process supervision for `folio serve` using suture v4.

# Overview

	RootSupervisor ("folio")
	├── EngineSupervisor ("engine-layer")
	│   ├── engine.Loop            (the single thread of control)
	│   ├── TaskTickerService      (one task-queue step per tick)
	│   └── SyncSchedulerService   (if sync.interval > 0 and not manual_only)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService      (if server.enabled)

Everything that touches engine state is submitted to engine.Loop, so a
restart of the bridge server or the ticker never races the engine.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddEngineService(loop)
	tree.AddEngineService(services.NewTaskTickerService(loop, eng, cfg.Tasks.TickInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	return tree.Serve(ctx)

# Failure Handling

Suture counts failures with exponential decay (FailureDecay seconds). Above
FailureThreshold the supervisor waits FailureBackoff before restarting.
Returning nil from Serve stops a service for good; an error restarts it.

Supervisor events are logged through sutureslog, backed by the zerolog
stream via logging.NewSlogLogger.

# Debugging Shutdown Issues

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("Service did not stop")
	}
*/
package supervisor
