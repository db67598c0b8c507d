// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package audit

import (
	"context"
	"time"
)

// Operation is the ledger call an entry describes.
type Operation string

const (
	OpSubmit   Operation = "submit"
	OpFinalize Operation = "finalize"
)

// Outcome is the result of the ledger call.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	// OutcomeRecovered marks a submit the ledger rejected as a duplicate
	// whose existing handle was adopted.
	OutcomeRecovered Outcome = "recovered"
)

// Entry is one row of the attestation log.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	StudentID     string    `json:"student_id"`
	Operation     Operation `json:"operation"`
	Outcome       Outcome   `json:"outcome"`
	Handle        string    `json:"handle,omitempty"`
	Signature     string    `json:"signature,omitempty"`
	Error         string    `json:"error,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Log is the append-only attestation log.
type Log interface {
	Append(ctx context.Context, e *Entry) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Entry, error)
	Close() error
}

// DefaultListLimit caps ListBySession when the caller passes zero.
const DefaultListLimit = 500
