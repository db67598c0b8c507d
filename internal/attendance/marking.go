// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"strings"

	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/store"
)

// Mark actors and outcomes reported to metrics.
const (
	actorStudent = "student"
	actorTeacher = "teacher"

	markOutcomeMarked        = "marked"
	markOutcomeAlreadyMarked = "already_marked"
	markOutcomeRejected      = "rejected"
	markOutcomeError         = "error"
)

// MarkPresence records that a student is present. The record is found or
// created in one transaction; a second mark returns AlreadyMarked and
// leaves the original timestamp alone. Concurrent duplicates resolve to
// exactly one success.
func (s *Service) MarkPresence(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error) {
	const op = "mark_presence"

	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(studentID) == "" {
		metrics.RecordMark(actorStudent, markOutcomeRejected)
		return nil, errorf(KindValidation, op, "session id and student id are required")
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		metrics.RecordMark(actorStudent, markOutcomeRejected)
		return nil, storeError(op, err, KindNotFound, "session")
	}
	switch state := sess.State(); state {
	case models.SessionEnded, models.SessionFinalized:
		metrics.RecordMark(actorStudent, markOutcomeRejected)
		return nil, errorf(KindInvalidState, op, "session %s is %s", sess.ID, state)
	}

	rec, err := s.store.UpsertRecord(ctx, sessionID, studentID, func(rec *models.AttendanceRecord, existed bool) error {
		if existed && rec.IsPresent {
			return errorf(KindAlreadyMarked, op, "attendance already marked")
		}
		now := s.clock()
		if !existed {
			rec.CreatedAt = now
		}
		rec.IsPresent = true
		rec.MarkedAt = &now
		rec.MarkedBy = studentID
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		switch KindOf(err) {
		case KindAlreadyMarked:
			metrics.RecordMark(actorStudent, markOutcomeAlreadyMarked)
			return nil, err
		default:
			metrics.RecordMark(actorStudent, markOutcomeError)
			return nil, storeError(op, err, KindNotFound, "session")
		}
	}

	metrics.RecordMark(actorStudent, markOutcomeMarked)
	s.emitMarked(ctx, sess, rec, studentID)

	if s.cfg.SubmitOnMark {
		if updated, err := s.broadcast(ctx, rec, studentID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("session_id", sessionID).
				Str("student_id", studentID).
				Msg("Submit on mark failed, reconciliation will retry")
		} else {
			rec = updated
		}
	}
	return rec, nil
}

// MarkByTeacher creates or overwrites a record on the teacher's authority.
// Finalized records are sealed. Once a record has been broadcast its
// presence is what the ledger holds, so it can no longer flip.
func (s *Service) MarkByTeacher(ctx context.Context, sessionID, studentID string, present bool, requester models.Principal) (*models.AttendanceRecord, error) {
	const op = "mark_by_teacher"

	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(studentID) == "" {
		metrics.RecordMark(actorTeacher, markOutcomeRejected)
		return nil, errorf(KindValidation, op, "session id and student id are required")
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		metrics.RecordMark(actorTeacher, markOutcomeRejected)
		return nil, storeError(op, err, KindNotFound, "session")
	}
	if !canManageSession(requester, sess) {
		metrics.RecordMark(actorTeacher, markOutcomeRejected)
		return nil, errorf(KindForbidden, op, "only the session's teacher can mark attendance")
	}

	rec, err := s.store.UpsertRecord(ctx, sessionID, studentID, func(rec *models.AttendanceRecord, existed bool) error {
		switch {
		case rec.IsFinalized:
			return errorf(KindAlreadyFinalized, op, "attendance record is finalized")
		case rec.IsBroadcasted && rec.IsPresent != present:
			return errorf(KindInvalidState, op, "attendance record was already submitted to the ledger")
		case existed && rec.IsPresent == present && rec.MarkedBy == requester.ID:
			return store.ErrUnchanged
		}
		now := s.clock()
		if !existed {
			rec.CreatedAt = now
		}
		rec.IsPresent = present
		rec.MarkedAt = &now
		rec.MarkedBy = requester.ID
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		metrics.RecordMark(actorTeacher, markOutcomeRejected)
		return nil, storeError(op, err, KindNotFound, "session")
	}

	metrics.RecordMark(actorTeacher, markOutcomeMarked)
	s.emitMarked(ctx, sess, rec, requester.ID)
	return rec, nil
}

func (s *Service) emitMarked(ctx context.Context, sess *models.Session, rec *models.AttendanceRecord, actor string) {
	events.Emit(ctx, s.events, events.AttendanceMarked, sess.ID, func(e *events.Event) {
		e.ClassID = sess.ClassID
		e.StudentID = rec.StudentID
		e.Actor = actor
	}, rec)
}
