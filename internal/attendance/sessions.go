// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/store"
)

// StartSessionInput describes a session to create.
type StartSessionInput struct {
	ClassID   string
	Name      string
	Date      time.Time
	StartTime time.Time
	EndTime   time.Time
}

func (in *StartSessionInput) validate(op string) error {
	switch {
	case strings.TrimSpace(in.ClassID) == "":
		return errorf(KindValidation, op, "class id is required")
	case strings.TrimSpace(in.Name) == "":
		return errorf(KindValidation, op, "session name is required")
	case in.StartTime.IsZero() || in.EndTime.IsZero():
		return errorf(KindValidation, op, "start and end time are required")
	case !in.EndTime.After(in.StartTime):
		return errorf(KindValidation, op, "end time must be after start time")
	}
	return nil
}

// StartSession creates a session for a class and seeds one unmarked
// attendance record per roster student in the same transaction.
func (s *Service) StartSession(ctx context.Context, in StartSessionInput, requester models.Principal) (*models.Session, error) {
	const op = "start_session"

	if err := in.validate(op); err != nil {
		return nil, err
	}
	if !requester.Role.CanStartSessions() {
		return nil, errorf(KindForbidden, op, "role %s cannot start sessions", requester.Role)
	}

	class, err := s.store.GetClass(ctx, in.ClassID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "class")
	}
	if !class.HasTeacher() {
		return nil, errorf(KindInvalidState, op, "class %s has no assigned teacher", class.ID)
	}
	if requester.Is(models.RoleTeacher) && class.TeacherID != requester.ID {
		return nil, errorf(KindForbidden, op, "class %s is not assigned to you", class.ID)
	}

	now := s.clock()
	date := in.Date
	if date.IsZero() {
		date = in.StartTime
	}
	sess := &models.Session{
		ID:        s.newID(),
		ClassID:   class.ID,
		Name:      strings.TrimSpace(in.Name),
		Date:      date.UTC(),
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		TeacherID: class.TeacherID,
		CreatedBy: requester.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	roster := uniqueIDs(class.Students)
	records := make([]*models.AttendanceRecord, 0, len(roster))
	for _, studentID := range roster {
		records = append(records, &models.AttendanceRecord{
			SessionID: sess.ID,
			StudentID: studentID,
			MarkedBy:  requester.ID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.store.CreateSessionWithRecords(ctx, sess, records); err != nil {
		var overlap *store.OverlapError
		switch {
		case errors.As(err, &overlap):
			metrics.SessionOverlapRejections.Inc()
			return nil, newError(KindConflict, op, overlap.Error(), err)
		case errors.Is(err, store.ErrExists):
			return nil, newError(KindConflict, op, "session id already taken", err)
		default:
			return nil, storeError(op, err, KindNotFound, "class")
		}
	}

	metrics.SessionsStarted.Inc()
	logging.Ctx(ctx).Info().
		Str("session_id", sess.ID).
		Str("class_id", sess.ClassID).
		Int("seeded_records", len(records)).
		Msg("Session created")
	return sess, nil
}

// SelectOrStartSession begins a session or resumes one already running.
// An unstarted session is flipped to started with its start time stamped;
// a started one is returned untouched. Either way the caller gets the
// roster's current attendance.
func (s *Service) SelectOrStartSession(ctx context.Context, sessionID string, requester models.Principal) (*models.SessionView, error) {
	const op = "select_or_start_session"

	if strings.TrimSpace(sessionID) == "" {
		return nil, errorf(KindValidation, op, "session id is required")
	}
	current, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "session")
	}
	if !canManageSession(requester, current) {
		return nil, errorf(KindForbidden, op, "only the session's teacher can start it")
	}

	var alreadyStarted bool
	sess, err := s.store.UpdateSession(ctx, sessionID, func(sess *models.Session) error {
		alreadyStarted = sess.IsStarted
		switch {
		case sess.IsStarted:
			return store.ErrUnchanged
		case sess.IsCompleted:
			return errorf(KindInvalidState, op, "session %s ended before it was started", sess.ID)
		}
		now := s.clock()
		sess.IsStarted = true
		sess.StartTime = now
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		var overlap *store.OverlapError
		switch {
		case errors.As(err, &overlap):
			metrics.SessionOverlapRejections.Inc()
			return nil, newError(KindConflict, op, "starting now would overlap session "+overlap.Existing.ID, err)
		case errors.Is(err, store.ErrInvalidWindow):
			return nil, newError(KindInvalidState, op, "session window has already closed", err)
		default:
			return nil, storeError(op, err, KindNotFound, "session")
		}
	}

	view, err := s.sessionView(ctx, sess)
	if err != nil {
		return nil, err
	}
	view.AlreadyStarted = alreadyStarted

	if !alreadyStarted {
		events.Emit(ctx, s.events, events.SessionStarted, sess.ID, func(e *events.Event) {
			e.ClassID = sess.ClassID
			e.Actor = requester.ID
		}, sess)
		logging.Ctx(ctx).Info().
			Str("session_id", sess.ID).
			Time("start_time", sess.StartTime).
			Int("roster", len(view.Attendance)).
			Int("present", len(view.PresentStudentIDs())).
			Msg("Session started")
	}
	return view, nil
}

// sessionView materializes per-roster-student presence. When the class is
// gone the stored records stand in for the roster.
func (s *Service) sessionView(ctx context.Context, sess *models.Session) (*models.SessionView, error) {
	const op = "session_view"

	records, err := s.store.ListRecordsBySession(ctx, sess.ID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "session")
	}

	var roster []string
	class, err := s.store.GetClass(ctx, sess.ClassID)
	switch {
	case err == nil:
		roster = uniqueIDs(class.Students)
	case errors.Is(err, store.ErrNotFound):
		for id := range records {
			roster = append(roster, id)
		}
		sort.Strings(roster)
	default:
		return nil, storeError(op, err, KindNotFound, "class")
	}

	view := &models.SessionView{
		Session:    sess,
		Attendance: make([]models.StudentPresence, 0, len(roster)),
	}
	for _, studentID := range roster {
		p := models.StudentPresence{StudentID: studentID}
		if rec, ok := records[studentID]; ok {
			p.HasRecord = true
			p.IsPresent = rec.IsPresent
			p.MarkedAt = rec.MarkedAt
			p.IsFinalized = rec.IsFinalized
		}
		view.Attendance = append(view.Attendance, p)
	}
	return view, nil
}

// EndSession marks a session completed. Only its teacher or an admin may
// end it; ending twice is a no-op.
func (s *Service) EndSession(ctx context.Context, sessionID string, requester models.Principal) (*models.Session, error) {
	const op = "end_session"

	if strings.TrimSpace(sessionID) == "" {
		return nil, errorf(KindValidation, op, "session id is required")
	}
	current, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "session")
	}
	if !canManageSession(requester, current) {
		return nil, errorf(KindForbidden, op, "only the session's teacher can end it")
	}

	var changed bool
	sess, err := s.store.UpdateSession(ctx, sessionID, func(sess *models.Session) error {
		changed = false
		if sess.IsCompleted {
			return store.ErrUnchanged
		}
		changed = true
		sess.IsCompleted = true
		sess.UpdatedAt = s.clock()
		return nil
	})
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "session")
	}

	if changed {
		events.Emit(ctx, s.events, events.SessionEnded, sess.ID, func(e *events.Event) {
			e.ClassID = sess.ClassID
			e.Actor = requester.ID
		}, sess)
		logging.Ctx(ctx).Info().Str("session_id", sess.ID).Msg("Session ended")
	}
	return sess, nil
}

// GetSession loads one session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError("get_session", err, KindNotFound, "session")
	}
	return sess, nil
}

// WatchSession authorizes a live feed subscription: only the session's
// teacher or an admin may watch it.
func (s *Service) WatchSession(ctx context.Context, sessionID string, requester models.Principal) (*models.Session, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canManageSession(requester, sess) {
		return nil, errorf(KindForbidden, "watch_session", "not allowed to watch session %s", sessionID)
	}
	return sess, nil
}

// ListClassSessions returns a class's sessions ordered by start time.
func (s *Service) ListClassSessions(ctx context.Context, classID string) ([]*models.Session, error) {
	const op = "list_class_sessions"

	if _, err := s.store.GetClass(ctx, classID); err != nil {
		return nil, storeError(op, err, KindNotFound, "class")
	}
	sessions, err := s.store.ListSessionsByClass(ctx, classID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "class")
	}
	return sessions, nil
}

// TeacherClasses lists the classes assigned to a teacher.
func (s *Service) TeacherClasses(ctx context.Context, teacherID string) ([]*models.Class, error) {
	classes, err := s.store.ListClassesByTeacher(ctx, teacherID)
	if err != nil {
		return nil, storeError("teacher_classes", err, KindNotFound, "teacher")
	}
	return classes, nil
}

// PutClass creates or replaces a roster snapshot.
func (s *Service) PutClass(ctx context.Context, class *models.Class) (*models.Class, error) {
	const op = "put_class"

	if class == nil || strings.TrimSpace(class.ID) == "" {
		return nil, errorf(KindValidation, op, "class id is required")
	}
	if strings.TrimSpace(class.Name) == "" {
		return nil, errorf(KindValidation, op, "class name is required")
	}
	cp := *class
	cp.Students = uniqueIDs(class.Students)
	if err := s.store.PutClass(ctx, &cp); err != nil {
		return nil, storeError(op, err, KindNotFound, "class")
	}
	stored, err := s.store.GetClass(ctx, cp.ID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "class")
	}
	return stored, nil
}

// GetClass loads one roster snapshot.
func (s *Service) GetClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return nil, storeError("get_class", err, KindNotFound, "class")
	}
	return class, nil
}

// uniqueIDs drops blanks and duplicates, preserving first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
