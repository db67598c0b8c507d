// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Fetch and Finalize when the ledger has no
	// record for the handle. It is distinct from transport failures.
	ErrNotFound = errors.New("ledger record not found")

	// ErrCircuitOpen is returned without contacting the gateway while the
	// circuit breaker is open or saturated in half-open state.
	ErrCircuitOpen = errors.New("ledger circuit breaker open")

	// ErrAlreadyFinalized is returned by Finalize for a handle that the
	// ledger has already sealed.
	ErrAlreadyFinalized = errors.New("ledger record already finalized")

	// ErrDuplicate is returned by Submit when the record's account already
	// holds an attestation. The existing record is reachable through
	// FetchByAccount.
	ErrDuplicate = errors.New("ledger account already holds an attestation")
)

// Submission is the attendance fact written to the ledger.
type Submission struct {
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	IsPresent bool      `json:"is_present"`
	MarkedAt  time.Time `json:"marked_at"`
}

// Confirmation is returned by Finalize.
type Confirmation struct {
	Handle      string    `json:"handle"`
	Signature   string    `json:"signature"`
	FinalizedAt time.Time `json:"finalized_at"`
}

// Record is the ledger's view of a submitted attestation.
type Record struct {
	Handle      string     `json:"handle"`
	Account     string     `json:"account"`
	SessionID   string     `json:"session_id"`
	StudentID   string     `json:"student_id"`
	IsPresent   bool       `json:"is_present"`
	MarkedAt    time.Time  `json:"marked_at"`
	IsFinalized bool       `json:"is_finalized"`
	Signature   string     `json:"signature,omitempty"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// Balance is the fee payer's remaining funds in the ledger's base unit.
type Balance struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// Client is the attestation store. Every call is one blocking round trip;
// implementations never retry.
type Client interface {
	Submit(ctx context.Context, sub Submission) (string, error)
	Finalize(ctx context.Context, handle string) (*Confirmation, error)
	Fetch(ctx context.Context, handle string) (*Record, error)
	// FetchByAccount reads the record held by the account derived for
	// (sessionID, studentID). ErrNotFound when the account is empty.
	FetchByAccount(ctx context.Context, sessionID, studentID string) (*Record, error)
	Balance(ctx context.Context) (*Balance, error)
}
