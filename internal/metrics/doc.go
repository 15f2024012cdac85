// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

// Package metrics defines Folio's Prometheus instrumentation.
//
// Metrics are registered on the default registry through promauto and
// exposed by the bridge server at GET /metrics.
package metrics
