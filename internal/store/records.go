// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/rollcall/internal/models"
)

// RecordMutator mutates an attendance record in place. existed is false
// when the record was just allocated by UpsertRecord. Returning
// ErrUnchanged skips the write; any other error aborts.
type RecordMutator func(rec *models.AttendanceRecord, existed bool) error

// GetRecord loads the record for one (session, student) pair.
func (s *Store) GetRecord(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.view(ctx, "get_record", func(txn *badger.Txn) error {
		return getJSON(txn, attendanceKey(sessionID, studentID), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertRecord finds or creates the record and applies fn in one optimistic
// transaction. When two callers race on a missing record, the first commit
// wins the insert; the loser's transaction conflicts, is retried, observes
// existed=true and applies its mutation as an update.
func (s *Store) UpsertRecord(ctx context.Context, sessionID, studentID string, fn RecordMutator) (*models.AttendanceRecord, error) {
	return s.mutateRecord(ctx, "upsert_record", sessionID, studentID, true, fn)
}

// UpdateRecord applies fn to an existing record. It returns ErrNotFound
// when the record is missing.
func (s *Store) UpdateRecord(ctx context.Context, sessionID, studentID string, fn RecordMutator) (*models.AttendanceRecord, error) {
	return s.mutateRecord(ctx, "update_record", sessionID, studentID, false, fn)
}

func (s *Store) mutateRecord(ctx context.Context, op, sessionID, studentID string, create bool, fn RecordMutator) (*models.AttendanceRecord, error) {
	var out models.AttendanceRecord
	err := s.update(ctx, op, func(txn *badger.Txn) error {
		key := attendanceKey(sessionID, studentID)

		var rec models.AttendanceRecord
		existed := true
		err := getJSON(txn, key, &rec)
		switch {
		case errors.Is(err, ErrNotFound) && create:
			existed = false
			rec = models.AttendanceRecord{SessionID: sessionID, StudentID: studentID}
		case err != nil:
			return err
		}

		stored := rec
		if err := fn(&rec, existed); err != nil {
			if errors.Is(err, ErrUnchanged) {
				out = stored
				return nil
			}
			return err
		}
		out = rec

		if err := setJSON(txn, key, &rec); err != nil {
			return err
		}
		if !existed {
			return txn.Set(studentAttendanceKey(studentID, sessionID), nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecordsBySession returns every record of a session keyed by student id.
func (s *Store) ListRecordsBySession(ctx context.Context, sessionID string) (map[string]*models.AttendanceRecord, error) {
	out := make(map[string]*models.AttendanceRecord)
	err := s.view(ctx, "list_records_by_session", func(txn *badger.Txn) error {
		records, err := scanJSON[models.AttendanceRecord](txn, attendancePrefix(sessionID))
		if err != nil {
			return err
		}
		for _, r := range records {
			out[r.StudentID] = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StudentRecord pairs a record with its session for summaries.
type StudentRecord struct {
	Session *models.Session
	Record  *models.AttendanceRecord
}

// ListRecordsByStudent returns every record of a student together with the
// owning session. Records whose session has vanished are skipped.
func (s *Store) ListRecordsByStudent(ctx context.Context, studentID string) ([]StudentRecord, error) {
	var out []StudentRecord
	err := s.view(ctx, "list_records_by_student", func(txn *badger.Txn) error {
		var sessionIDs []string
		if err := scanPrefix(txn, studentAttendancePrefix(studentID), func(id string) error {
			sessionIDs = append(sessionIDs, id)
			return nil
		}); err != nil {
			return err
		}

		for _, sid := range sessionIDs {
			var sess models.Session
			if err := getJSON(txn, sessionKey(sid), &sess); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			var rec models.AttendanceRecord
			if err := getJSON(txn, attendanceKey(sid, studentID), &rec); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, StudentRecord{Session: &sess, Record: &rec})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
