// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package metrics declares the Prometheus collectors for the service.

All collectors register with the default registry through promauto and are
served at /metrics.

# Available Metrics

Store:
  - rollcall_store_op_duration_seconds (histogram, operation)
  - rollcall_store_op_errors_total (counter, operation)
  - rollcall_store_txn_conflicts_total (counter, operation)

Attendance and reconciliation:
  - rollcall_sessions_started_total
  - rollcall_session_overlap_rejections_total
  - rollcall_attendance_marks_total (actor, outcome)
  - rollcall_reconcile_batch_duration_seconds
  - rollcall_reconcile_outcomes_total (outcome)

Ledger:
  - rollcall_ledger_call_duration_seconds (operation)
  - rollcall_ledger_calls_total (operation, result)
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_consecutive_failures, circuit_breaker_state_transitions_total

HTTP:
  - api_requests_total, api_request_duration_seconds, api_active_requests,
    api_rate_limit_hits_total

Auth, events and websocket counters round out the set.
*/
package metrics
