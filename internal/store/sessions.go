// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/rollcall/internal/models"
)

// OverlapError is returned by CreateSessionWithRecords and UpdateSession
// when a window intersects another session of the same class.
type OverlapError struct {
	Existing *models.Session
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("session overlaps existing session %s (%s - %s)",
		e.Existing.ID,
		e.Existing.StartTime.Format("2006-01-02T15:04:05Z07:00"),
		e.Existing.EndTime.Format("2006-01-02T15:04:05Z07:00"))
}

// CreateSessionWithRecords inserts a session and its seeded attendance
// records in one transaction. The overlap check runs inside the same
// transaction and touches the per-class guard key, so of two concurrent
// overlapping creates one commits and the other retries, sees the winner
// and fails with *OverlapError.
func (s *Store) CreateSessionWithRecords(ctx context.Context, sess *models.Session, records []*models.AttendanceRecord) error {
	return s.update(ctx, "create_session", func(txn *badger.Txn) error {
		guard := classGuardKey(sess.ClassID)
		if _, err := txn.Get(guard); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("read class guard: %w", err)
		}

		if _, err := txn.Get(sessionKey(sess.ID)); err == nil {
			return fmt.Errorf("session %s: %w", sess.ID, ErrExists)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		existing, err := sessionsOfClass(txn, sess.ClassID)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if other.Overlaps(sess.StartTime, sess.EndTime) {
				return &OverlapError{Existing: other}
			}
		}

		if err := setJSON(txn, sessionKey(sess.ID), sess); err != nil {
			return err
		}
		if err := txn.Set(classSessionKey(sess.ClassID, sess.ID), nil); err != nil {
			return err
		}
		for _, rec := range records {
			if err := setJSON(txn, attendanceKey(rec.SessionID, rec.StudentID), rec); err != nil {
				return err
			}
			if err := txn.Set(studentAttendanceKey(rec.StudentID, rec.SessionID), nil); err != nil {
				return err
			}
		}
		return txn.Set(guard, []byte(sess.ID))
	})
}

// GetSession loads a session.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var sess models.Session
	err := s.view(ctx, "get_session", func(txn *badger.Txn) error {
		return getJSON(txn, sessionKey(sessionID), &sess)
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// UpdateSession applies fn to the stored session and writes the result.
// If fn returns ErrUnchanged nothing is written and the stored session is
// returned. Any other error aborts the transaction and is returned as is.
//
// When fn moves the window it is validated like a create: an empty or
// inverted window fails with ErrInvalidWindow and an intersection with a
// sibling session fails with *OverlapError, under the same class guard.
func (s *Store) UpdateSession(ctx context.Context, sessionID string, fn func(*models.Session) error) (*models.Session, error) {
	var out models.Session
	err := s.update(ctx, "update_session", func(txn *badger.Txn) error {
		var sess models.Session
		if err := getJSON(txn, sessionKey(sessionID), &sess); err != nil {
			return err
		}
		stored := sess
		if err := fn(&sess); err != nil {
			if errors.Is(err, ErrUnchanged) {
				out = stored
				return nil
			}
			return err
		}
		if !sess.StartTime.Equal(stored.StartTime) || !sess.EndTime.Equal(stored.EndTime) {
			if err := checkWindow(txn, &sess); err != nil {
				return err
			}
		}
		out = sess
		return setJSON(txn, sessionKey(sessionID), &sess)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessionsByClass returns a class's sessions ordered by start time.
func (s *Store) ListSessionsByClass(ctx context.Context, classID string) ([]*models.Session, error) {
	var sessions []*models.Session
	err := s.view(ctx, "list_sessions_by_class", func(txn *badger.Txn) error {
		var err error
		sessions, err = sessionsOfClass(txn, classID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// checkWindow validates a moved window against the class's other sessions
// and touches the class guard so concurrent creates and moves serialize.
func checkWindow(txn *badger.Txn, sess *models.Session) error {
	if !sess.StartTime.Before(sess.EndTime) {
		return fmt.Errorf("session %s: %w", sess.ID, ErrInvalidWindow)
	}
	guard := classGuardKey(sess.ClassID)
	if _, err := txn.Get(guard); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("read class guard: %w", err)
	}
	siblings, err := sessionsOfClass(txn, sess.ClassID)
	if err != nil {
		return err
	}
	for _, other := range siblings {
		if other.ID != sess.ID && other.Overlaps(sess.StartTime, sess.EndTime) {
			return &OverlapError{Existing: other}
		}
	}
	return txn.Set(guard, []byte(sess.ID))
}

func sessionsOfClass(txn *badger.Txn, classID string) ([]*models.Session, error) {
	var ids []string
	if err := scanPrefix(txn, classSessionPrefix(classID), func(id string) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		return nil, err
	}

	sessions := make([]*models.Session, 0, len(ids))
	for _, id := range ids {
		var sess models.Session
		if err := getJSON(txn, sessionKey(id), &sess); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, &sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions, nil
}
