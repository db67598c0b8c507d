// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package models defines the data types shared by the store, the attendance
engine and the HTTP API.

# Core Types

  - Session: one scheduled class meeting with a half-open time window
  - AttendanceRecord: one (session, student) presence fact plus its ledger handles
  - Class: the roster snapshot used to seed sessions
  - Role and Principal: the closed role enumeration and the authenticated caller

# Batch Results

FinalizationResult partitions a reconciliation batch into FinalizedRecords
and FailedRecords. A batch with failures is still a successful call.

# API Envelope

Every HTTP response is wrapped in APIResponse with a Metadata block and an
optional APIError.
*/
package models
