// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package audit keeps the ledger attestation log: one row per submit or
// finalize attempt with its outcome, handle and signature.
//
// DuckDBLog is the durable implementation (github.com/duckdb/duckdb-go/v2);
// MemoryLog serves tests and runs with audit.enabled=false. Recorder is
// what the reconciliation engine holds. It fills ids and timestamps and
// swallows append errors after logging them.
//
// DuckDB tests need CGO and run with -tags integration.
package audit
