// Folio - Reading Session Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session tracking
	SessionsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_sessions_queued_total",
			Help: "Total number of live sessions written to the pending queue",
		},
	)

	SessionsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_sessions_discarded_total",
			Help: "Total number of live sessions discarded by validation",
		},
		[]string{"reason"}, // "too_short", "no_pages", "too_few_pages"
	)

	// Queue
	PendingSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_pending_sessions",
			Help: "Current number of sessions waiting for upload",
		},
	)

	// Upload
	UploadOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_upload_outcomes_total",
			Help: "Per-session upload outcomes",
		},
		[]string{"outcome"}, // "synced", "unmatched", "failed"
	)

	BatchFallbackCalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_batch_fallback_calls_total",
			Help: "Single-session requests issued after a batch 404",
		},
	)

	SyncPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_sync_pass_duration_seconds",
			Help:    "Duration of sync passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "status"}, // kind: "pending", "historical", "rematch"
	)

	// Remote API
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_remote_requests_total",
			Help: "Total number of remote API requests",
		},
		[]string{"endpoint", "status"},
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_remote_request_duration_seconds",
			Help:    "Remote API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_token_refreshes_total",
			Help: "Bearer token logins by trigger",
		},
		[]string{"trigger"}, // "expiring", "forced", "missing"
	)

	// Identity
	ResolverResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_resolver_results_total",
			Help: "Identity resolution results by strategy",
		},
		[]string{"strategy"}, // "cache_hash", "cache_locator", "isbn", "remote_hash", "title_candidates", "miss"
	)

	// Extraction
	HistoricalSessionsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_historical_sessions_extracted_total",
			Help: "Reconstructed sessions written to the archive",
		},
		[]string{"matched"},
	)

	// Task queue
	TasksQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_tasks_queued",
			Help: "Current number of units waiting in the task queue",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Bridge API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_api_request_duration_seconds",
			Help:    "Bridge API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRemoteRequest records one remote call. status 0 means no response.
func RecordRemoteRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	RemoteRequests.WithLabelValues(endpoint, label).Inc()
	RemoteRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSyncPass records the duration and result of a sync pass.
func RecordSyncPass(kind string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SyncPassDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// RecordUploadOutcome counts one per-session upload outcome.
func RecordUploadOutcome(outcome string) {
	UploadOutcomes.WithLabelValues(outcome).Inc()
}

// RecordResolverResult counts an identity resolution by strategy.
func RecordResolverResult(strategy string) {
	ResolverResults.WithLabelValues(strategy).Inc()
}

// RecordAPIRequest records a bridge API request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
