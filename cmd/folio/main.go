// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package main is the folio command.
//
// Folio records reading sessions on an e-reader host, queues them in a
// local SQLite store and uploads them to a remote reading-tracking server
// whenever it is reachable.
//
// # Application Architecture
//
// Every subcommand initializes components in the same order:
//
//  1. Configuration: defaults, optional YAML file, FOLIO_* environment (Koanf v2)
//  2. Logging: zerolog, optionally to a rotated file
//  3. Database: local SQLite store with forward-only migrations
//  4. Remote client: paced, circuit-breaker guarded, bearer or basic auth
//  5. Engine: session tracking, identity resolution, upload queue
//
// `folio serve` additionally starts the supervisor tree: the engine loop,
// the task ticker, the periodic sync scheduler and the local HTTP bridge.
//
// # Example Usage
//
//	export FOLIO_REMOTE_URL=https://books.example.org/api
//	export FOLIO_REMOTE_USERNAME=reader
//	export FOLIO_REMOTE_PASSWORD=secret
//	folio test-connection
//	folio serve
//
// One-shot maintenance:
//
//	folio sync                 # drain the pending queue once
//	folio extract              # rebuild sessions from the host statistics DB
//	folio queue clear --yes    # drop every pending session
//	folio fingerprint book.epub
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
