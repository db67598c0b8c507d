// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store Metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rollcall_store_op_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_store_op_errors_total",
			Help: "Total number of document store operation errors",
		},
		[]string{"operation"},
	)

	StoreTxnConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_store_txn_conflicts_total",
			Help: "Total number of optimistic transaction conflicts that were retried",
		},
		[]string{"operation"},
	)

	// Attendance Metrics
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollcall_sessions_started_total",
			Help: "Total number of sessions created",
		},
	)

	SessionOverlapRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollcall_session_overlap_rejections_total",
			Help: "Total number of session creations rejected for overlapping an existing session",
		},
	)

	AttendanceMarks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_attendance_marks_total",
			Help: "Total number of attendance marks by actor and outcome",
		},
		[]string{"actor", "outcome"}, // actor: "student", "teacher"; outcome: "marked", "already_marked", "rejected"
	)

	// Reconciliation Metrics
	ReconcileBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rollcall_reconcile_batch_duration_seconds",
			Help:    "Duration of attendance finalization batches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ReconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_reconcile_outcomes_total",
			Help: "Per-student finalization outcomes",
		},
		[]string{"outcome"}, // "finalized" or a failure kind
	)

	// Ledger Metrics
	LedgerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rollcall_ledger_call_duration_seconds",
			Help:    "Duration of ledger gateway calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	LedgerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_ledger_calls_total",
			Help: "Total number of ledger gateway calls",
		},
		[]string{"operation", "result"}, // result: "success", "not_found", "error"
	)

	LedgerRecordCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_ledger_record_cache_total",
			Help: "Finalized ledger record lookups served from or missed by the cache",
		},
		[]string{"result"}, // result: "hit", "miss"
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

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Auth Metrics
	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_token_validations_total",
			Help: "Bearer token validation results",
		},
		[]string{"result"}, // "valid", "invalid", "expired", "revoked"
	)

	RevokedTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rollcall_revoked_tokens",
			Help: "Current number of unexpired revoked token ids",
		},
	)

	AuthzDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_authz_denials_total",
			Help: "Total number of requests denied by policy",
		},
		[]string{"role", "object", "action"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"type"},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_event_publish_errors_total",
			Help: "Total number of domain events that failed to publish",
		},
		[]string{"type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Audit Metrics
	AuditAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_audit_appends_total",
			Help: "Total number of ledger attestation log appends",
		},
		[]string{"result"}, // "success", "error"
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordStoreOp records a document store operation.
func RecordStoreOp(operation string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation).Inc()
	}
}

// RecordLedgerCall records one gateway round trip.
func RecordLedgerCall(operation, result string, duration time.Duration) {
	LedgerCallsTotal.WithLabelValues(operation, result).Inc()
	LedgerCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordMark records the outcome of a presence mark.
func RecordMark(actor, outcome string) {
	AttendanceMarks.WithLabelValues(actor, outcome).Inc()
}

// RecordReconcileBatch records the duration and per-outcome counts of a batch.
func RecordReconcileBatch(duration time.Duration, outcomes map[string]int) {
	ReconcileBatchDuration.Observe(duration.Seconds())
	for outcome, n := range outcomes {
		ReconcileOutcomes.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordEventPublish records a domain event publication attempt.
func RecordEventPublish(eventType string, err error) {
	if err != nil {
		EventPublishErrors.WithLabelValues(eventType).Inc()
		return
	}
	EventsPublished.WithLabelValues(eventType).Inc()
}
