// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package models

import "time"

// AttendanceRecord is one student's presence fact for one session. The
// (SessionID, StudentID) pair is unique.
//
// Invariants:
//   - IsFinalized implies IsPresent and IsBroadcasted
//   - BroadcastTransactionSignature is written once and never replaced
type AttendanceRecord struct {
	SessionID string     `json:"session_id"`
	StudentID string     `json:"student_id"`
	IsPresent bool       `json:"is_present"`
	MarkedAt  *time.Time `json:"marked_at,omitempty"`
	MarkedBy  string     `json:"marked_by"`

	IsBroadcasted                    bool       `json:"is_broadcasted"`
	BroadcastTransactionSignature    string     `json:"broadcast_transaction_signature,omitempty"`
	IsFinalized                      bool       `json:"is_finalized"`
	FinalizationTransactionSignature string     `json:"finalization_transaction_signature,omitempty"`
	FinalizedAt                      *time.Time `json:"finalized_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NeedsBroadcast reports whether the record has never reached the ledger.
func (r *AttendanceRecord) NeedsBroadcast() bool {
	return !r.IsBroadcasted
}

// Resumable reports whether a previous run broadcast the record but did not
// finalize it.
func (r *AttendanceRecord) Resumable() bool {
	return r.IsBroadcasted && !r.IsFinalized
}

// FinalizedRecord is a successful outcome of a reconciliation batch.
type FinalizedRecord struct {
	SessionID                        string `json:"session_id"`
	StudentID                        string `json:"student_id"`
	BroadcastTransactionSignature    string `json:"broadcast_transaction_signature"`
	FinalizationTransactionSignature string `json:"finalization_transaction_signature"`
}

// FailedRecord is a per-student failure collected during a batch.
type FailedRecord struct {
	StudentID string `json:"student_id"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

// FinalizationResult partitions a batch. Callers inspect FailedRecords to
// detect partial failure; the batch itself does not fail for them.
type FinalizationResult struct {
	SessionID        string            `json:"session_id"`
	FinalizedRecords []FinalizedRecord `json:"finalized_records"`
	FailedRecords    []FailedRecord    `json:"failed_records"`
	SessionFinalized bool              `json:"session_finalized"`
}

// FailedStudentIDs returns the ids a teacher would retry.
func (r *FinalizationResult) FailedStudentIDs() []string {
	ids := make([]string, len(r.FailedRecords))
	for i, f := range r.FailedRecords {
		ids[i] = f.StudentID
	}
	return ids
}
