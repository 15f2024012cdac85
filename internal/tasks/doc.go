// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package tasks provides cooperative scheduling for long-running work.
//
// A Task is a sequence of small steps. Each Queue.Tick runs exactly one step
// of the task at the head of the queue and moves it to the back when more
// work remains, so a bulk extraction or re-match never holds the engine loop
// for longer than one chunk. There is no preemption: Cancel only prevents the
// next step from being scheduled.
//
//	q := tasks.New()
//	q.Enqueue(&tasks.Task{
//	    Name: "extract",
//	    Step: func(ctx context.Context) (bool, error) { return x.Step(ctx, 25) },
//	})
//	for q.Tick(ctx) {
//	}
package tasks
