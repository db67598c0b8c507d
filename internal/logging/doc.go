// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package logging provides the process-wide zerolog logger for Rollcall.
//
// Every package logs through this one logger so that output stays a single
// structured stream: JSON in production, console in development.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//
//	logging.Info().Str("session_id", id).Msg("session started")
//	logging.Err(err).Str("student_id", sid).Msg("ledger submit failed")
//
// # Request Context
//
// The HTTP layer stores a request id and a correlation id in the request
// context. Ctx pulls both into the log entry:
//
//	logging.Ctx(ctx).Warn().Msg("attendance already marked")
//	// {"level":"warn","request_id":"...","correlation_id":"ab12cd34",...}
//
// # Adapters
//
//   - NewSlogLogger: *slog.Logger for sutureslog (supervisor events)
//   - NewWatermillAdapter: watermill.LoggerAdapter for the event bus
//
// # Conventions
//
// Terminate every chain with Msg or Send, use typed fields rather than
// Msgf, and pass request-supplied strings through SanitizeValue.
package logging
