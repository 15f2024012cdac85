// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/folio/internal/logging"
	"github.com/tomtom215/folio/internal/metrics"
)

// ErrCanceled is passed to Task.Done when Cancel removed the task.
var ErrCanceled = errors.New("task canceled")

// Step runs one unit of work and reports whether the task is finished.
type Step func(ctx context.Context) (done bool, err error)

// Task is a unit of cooperative work.
type Task struct {
	Name string
	Step Step

	// Done, if set, runs once when the task finishes, fails or is canceled.
	Done func(ctx context.Context, err error)

	steps int
}

// Steps returns how many steps of the task have run.
func (t *Task) Steps() int {
	return t.steps
}

// Queue is a FIFO of tasks advanced one step per Tick.
type Queue struct {
	mu    sync.Mutex
	tasks []*Task
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends t.
func (q *Queue) Enqueue(t *Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	n := len(q.tasks)
	q.mu.Unlock()

	metrics.TasksQueued.Set(float64(n))
	logging.Debug().Str("task", t.Name).Int("queued", n).Msg("Task enqueued")
}

// Tick runs one step of the head task and reports whether a step ran.
// A task whose step fails is dropped and its Done receives the error.
func (q *Queue) Tick(ctx context.Context) bool {
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.mu.Unlock()
		return false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	q.mu.Unlock()

	t.steps++
	done, err := t.Step(ctx)
	switch {
	case err != nil:
		logging.Ctx(ctx).Error().Err(err).Str("task", t.Name).Int("steps", t.steps).Msg("Task failed")
		q.finish(ctx, t, err)
	case done:
		logging.Ctx(ctx).Debug().Str("task", t.Name).Int("steps", t.steps).Msg("Task completed")
		q.finish(ctx, t, nil)
	default:
		q.mu.Lock()
		q.tasks = append(q.tasks, t)
		q.mu.Unlock()
	}

	metrics.TasksQueued.Set(float64(q.Len()))
	return true
}

// Cancel drops every queued task and returns how many were removed.
// A step already running is not interrupted.
func (q *Queue) Cancel(ctx context.Context) int {
	q.mu.Lock()
	canceled := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, t := range canceled {
		q.finish(ctx, t, ErrCanceled)
	}
	metrics.TasksQueued.Set(0)
	if len(canceled) > 0 {
		logging.Ctx(ctx).Info().Int("canceled", len(canceled)).Msg("Tasks canceled")
	}
	return len(canceled)
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Names returns the queued task names in run order.
func (q *Queue) Names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, len(q.tasks))
	for i, t := range q.tasks {
		names[i] = t.Name
	}
	return names
}

func (q *Queue) finish(ctx context.Context, t *Task, err error) {
	if t.Done != nil {
		t.Done(ctx, err)
	}
}

// Drain ticks until the queue is empty or ctx is done. It is meant for
// one-shot command-line runs where nothing else shares the loop.
func (q *Queue) Drain(ctx context.Context) error {
	for q.Tick(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
