// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package engine

import "errors"

// ErrBusy is returned by guarded operations while another one is running.
var ErrBusy = errors.New("engine busy")

// State is the engine's activity.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateMatching
	StateSyncing
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateMatching:
		return "matching"
	case StateSyncing:
		return "syncing"
	default:
		return "idle"
	}
}

// enter moves from idle to next, or returns ErrBusy.
func (e *Engine) enter(next State) error {
	if e.state != StateIdle {
		return ErrBusy
	}
	e.state = next
	return nil
}

func (e *Engine) leave() {
	e.state = StateIdle
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}
