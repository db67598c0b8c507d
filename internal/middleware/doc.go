// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package middleware holds the HTTP middleware shared by every route:
// request id propagation, access logging and Prometheus instrumentation.
//
// All middleware has the chi signature func(http.Handler) http.Handler.
// Order in the router is RequestID, AccessLog, then PrometheusMetrics.
package middleware
