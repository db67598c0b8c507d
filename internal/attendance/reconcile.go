// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/rollcall/internal/audit"
	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/ledger"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/store"
)

// studentOutcome is what one student's pipeline produced. Exactly one of
// the fields is set.
type studentOutcome struct {
	finalized *models.FinalizedRecord
	failed    *models.FailedRecord
}

// FinalizeAttendance drives each listed student's record through submit and
// finalize on the ledger. Students are processed independently and
// concurrently; per-student failures are collected in the result and never
// fail the batch. Only structural problems (no session id, no students,
// unknown session) and authorization are returned as errors.
func (s *Service) FinalizeAttendance(ctx context.Context, sessionID string, studentIDs []string, requester models.Principal) (*models.FinalizationResult, error) {
	const op = "finalize_attendance"

	if strings.TrimSpace(sessionID) == "" {
		return nil, errorf(KindValidation, op, "session id is required")
	}
	ids := uniqueIDs(studentIDs)
	if len(ids) == 0 {
		return nil, errorf(KindValidation, op, "at least one student id is required")
	}

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "session")
	}
	if !canManageSession(requester, sess) {
		return nil, errorf(KindForbidden, op, "only the session's teacher can finalize attendance")
	}

	start := time.Now()
	outcomes := make([]studentOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, studentID := range ids {
		g.Go(func() error {
			outcomes[i] = s.finalizeStudent(ctx, sess, studentID, requester.ID)
			return nil
		})
	}
	_ = g.Wait()

	result := &models.FinalizationResult{
		SessionID:        sess.ID,
		FinalizedRecords: make([]models.FinalizedRecord, 0, len(ids)),
		FailedRecords:    make([]models.FailedRecord, 0),
	}
	counts := make(map[string]int)
	for _, o := range outcomes {
		switch {
		case o.finalized != nil:
			result.FinalizedRecords = append(result.FinalizedRecords, *o.finalized)
			counts["finalized"]++
		case o.failed != nil:
			result.FailedRecords = append(result.FailedRecords, *o.failed)
			counts[o.failed.Kind]++
		}
	}

	result.SessionFinalized = s.finalizeSessionIfComplete(ctx, sess.ID)
	metrics.RecordReconcileBatch(time.Since(start), counts)

	logger := logging.Ctx(ctx)
	var evt *zerolog.Event
	if len(result.FailedRecords) > 0 {
		evt = logger.Warn().Strs("failed_students", result.FailedStudentIDs())
	} else {
		evt = logger.Info()
	}
	evt.Str("session_id", sess.ID).
		Int("requested", len(ids)).
		Int("finalized", len(result.FinalizedRecords)).
		Int("failed", len(result.FailedRecords)).
		Bool("session_finalized", result.SessionFinalized).
		Dur("duration", time.Since(start)).
		Msg("Attendance finalization batch complete")
	return result, nil
}

// finalizeStudent runs lookup, finalized check, presence check, submit when
// needed, then finalize. Each step that touches the ledger persists its
// result before the next step starts.
func (s *Service) finalizeStudent(ctx context.Context, sess *models.Session, studentID, actor string) studentOutcome {
	fail := func(err error) studentOutcome {
		kind := KindOf(err)
		if kind == KindUnknown {
			kind = KindInfrastructure
		}
		logging.Ctx(ctx).Warn().Err(err).
			Str("session_id", sess.ID).
			Str("student_id", studentID).
			Str("kind", kind.String()).
			Msg("Attendance record not finalized")
		return studentOutcome{failed: &models.FailedRecord{
			StudentID: studentID,
			Kind:      kind.String(),
			Error:     err.Error(),
		}}
	}

	rec, err := s.store.GetRecord(ctx, sess.ID, studentID)
	if err != nil {
		return fail(storeError("lookup", err, KindRecordNotFound, "attendance record"))
	}
	if rec.IsFinalized {
		return fail(errorf(KindAlreadyFinalized, "lookup", "attendance record is already finalized"))
	}
	if !rec.IsPresent {
		return fail(errorf(KindNotPresent, "lookup", "student is not marked present"))
	}

	if rec.NeedsBroadcast() {
		rec, err = s.broadcast(ctx, rec, actor)
		if err != nil {
			return fail(err)
		}
	} else if rec.Resumable() {
		logging.Ctx(ctx).Debug().
			Str("session_id", sess.ID).
			Str("student_id", studentID).
			Str("handle", rec.BroadcastTransactionSignature).
			Msg("Resuming finalization of broadcast record")
	}

	rec, err = s.seal(ctx, rec, actor)
	if err != nil {
		return fail(err)
	}

	events.Emit(ctx, s.events, events.AttendanceFinalized, sess.ID, func(e *events.Event) {
		e.ClassID = sess.ClassID
		e.StudentID = studentID
		e.Actor = actor
	}, rec)

	return studentOutcome{finalized: &models.FinalizedRecord{
		SessionID:                        rec.SessionID,
		StudentID:                        rec.StudentID,
		BroadcastTransactionSignature:    rec.BroadcastTransactionSignature,
		FinalizationTransactionSignature: rec.FinalizationTransactionSignature,
	}}
}

// broadcast submits rec and persists the returned handle. A submit failure
// leaves the record untouched. If another caller persisted a handle first,
// theirs stands and the stored record is returned.
//
// The ledger holds one attestation per (session, student) account, so a
// submit whose earlier handle was never persisted comes back as a
// duplicate. The existing handle is then read from the account and
// adopted, and the record resumes at finalize.
func (s *Service) broadcast(ctx context.Context, rec *models.AttendanceRecord, actor string) (*models.AttendanceRecord, error) {
	const op = "submit"

	if !rec.NeedsBroadcast() {
		return rec, nil
	}

	sub := ledger.Submission{
		SessionID: rec.SessionID,
		StudentID: rec.StudentID,
		IsPresent: rec.IsPresent,
	}
	if rec.MarkedAt != nil {
		sub.MarkedAt = *rec.MarkedAt
	}

	callCtx, cancel := s.ledgerCtx(ctx)
	handle, err := s.ledger.Submit(callCtx, sub)
	cancel()

	entry := audit.Entry{
		SessionID: rec.SessionID,
		StudentID: rec.StudentID,
		Operation: audit.OpSubmit,
		Outcome:   audit.OutcomeSuccess,
		Handle:    handle,
		Actor:     actor,
	}
	if errors.Is(err, ledger.ErrDuplicate) {
		handle, err = s.recoverHandle(ctx, sub, err)
		entry.Handle = handle
		if err == nil {
			entry.Outcome = audit.OutcomeRecovered
		}
	}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Error = err.Error()
		s.audit.Record(ctx, entry)
		if KindOf(err) != KindUnknown {
			return nil, err
		}
		return nil, newError(KindLedgerSubmitFailed, op, "ledger submit failed", err)
	}
	s.audit.Record(ctx, entry)

	updated, err := s.store.UpdateRecord(ctx, rec.SessionID, rec.StudentID, func(r *models.AttendanceRecord, _ bool) error {
		switch {
		case r.IsBroadcasted:
			return store.ErrUnchanged
		case r.IsPresent != sub.IsPresent:
			return errorf(KindConflict, op, "attendance record changed while it was being submitted")
		}
		r.IsBroadcasted = true
		r.BroadcastTransactionSignature = handle
		r.UpdatedAt = s.clock()
		return nil
	})
	if err != nil {
		if KindOf(err) != KindUnknown {
			return nil, err
		}
		logging.Ctx(ctx).Error().Err(err).
			Str("session_id", rec.SessionID).
			Str("student_id", rec.StudentID).
			Str("handle", handle).
			Msg("Ledger handle could not be persisted")
		return nil, newError(KindInfrastructure, op, "persist ledger handle "+handle, err)
	}
	if updated.BroadcastTransactionSignature != handle {
		logging.Ctx(ctx).Warn().
			Str("session_id", rec.SessionID).
			Str("student_id", rec.StudentID).
			Str("orphaned_handle", handle).
			Str("handle", updated.BroadcastTransactionSignature).
			Msg("Concurrent broadcast won, keeping the stored handle")
	}
	return updated, nil
}

// recoverHandle reads the attestation already held by the record's account
// after a duplicate submit. A ledger fact that disagrees with the stored
// presence is a conflict a teacher has to resolve.
func (s *Service) recoverHandle(ctx context.Context, sub ledger.Submission, submitErr error) (string, error) {
	callCtx, cancel := s.ledgerCtx(ctx)
	defer cancel()

	existing, err := s.ledger.FetchByAccount(callCtx, sub.SessionID, sub.StudentID)
	if err != nil {
		return "", errors.Join(submitErr, err)
	}
	if existing.Handle == "" {
		return "", submitErr
	}
	if existing.IsPresent != sub.IsPresent {
		return "", newError(KindConflict, "submit",
			"ledger already holds a different attestation for this student", submitErr)
	}

	logging.Ctx(ctx).Info().
		Str("session_id", sub.SessionID).
		Str("student_id", sub.StudentID).
		Str("handle", existing.Handle).
		Bool("ledger_finalized", existing.IsFinalized).
		Msg("Adopted existing ledger handle after duplicate submit")
	return existing.Handle, nil
}

// seal finalizes a broadcast record on the ledger and persists the
// confirmation. A ledger that reports the handle as already sealed is
// asked for the signature so a run that died after finalize but before
// persisting can complete.
func (s *Service) seal(ctx context.Context, rec *models.AttendanceRecord, actor string) (*models.AttendanceRecord, error) {
	const op = "finalize"

	handle := rec.BroadcastTransactionSignature
	signature, err := s.finalizeOnLedger(ctx, handle)

	entry := audit.Entry{
		SessionID: rec.SessionID,
		StudentID: rec.StudentID,
		Operation: audit.OpFinalize,
		Outcome:   audit.OutcomeSuccess,
		Handle:    handle,
		Signature: signature,
		Actor:     actor,
	}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Error = err.Error()
		s.audit.Record(ctx, entry)
		return nil, newError(KindLedgerFinalizeFailed, op, "ledger finalize failed", err)
	}
	s.audit.Record(ctx, entry)

	updated, err := s.store.UpdateRecord(ctx, rec.SessionID, rec.StudentID, func(r *models.AttendanceRecord, _ bool) error {
		switch {
		case r.IsFinalized:
			return errorf(KindAlreadyFinalized, op, "attendance record is already finalized")
		case r.BroadcastTransactionSignature != handle:
			return errorf(KindConflict, op, "attendance record handle changed during finalize")
		}
		now := s.clock()
		r.IsFinalized = true
		r.FinalizationTransactionSignature = signature
		r.FinalizedAt = &now
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		if KindOf(err) != KindUnknown {
			return nil, err
		}
		return nil, newError(KindInfrastructure, op, "persist finalization", err)
	}
	return updated, nil
}

func (s *Service) finalizeOnLedger(ctx context.Context, handle string) (string, error) {
	callCtx, cancel := s.ledgerCtx(ctx)
	defer cancel()

	conf, err := s.ledger.Finalize(callCtx, handle)
	if err == nil {
		return conf.Signature, nil
	}
	if !errors.Is(err, ledger.ErrAlreadyFinalized) {
		return "", err
	}

	fetched, ferr := s.ledger.Fetch(callCtx, handle)
	if ferr != nil {
		return "", errors.Join(err, ferr)
	}
	if !fetched.IsFinalized || fetched.Signature == "" {
		return "", err
	}
	return fetched.Signature, nil
}

// finalizeSessionIfComplete flips the session to finalized once it has
// ended and every roster student's record is either finalized or absent.
// Absent students can never be finalized, so they do not hold it back.
func (s *Service) finalizeSessionIfComplete(ctx context.Context, sessionID string) bool {
	log := logging.Ctx(ctx)

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Session finalization check failed")
		return false
	}
	if sess.IsFinalized {
		return true
	}
	if !sess.IsCompleted {
		return false
	}

	view, err := s.sessionView(ctx, sess)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Session finalization check failed")
		return false
	}
	finalized := 0
	for _, p := range view.Attendance {
		if p.IsPresent && !p.IsFinalized {
			return false
		}
		if p.IsFinalized {
			finalized++
		}
	}
	if finalized == 0 {
		return false
	}

	_, err = s.store.UpdateSession(ctx, sessionID, func(sess *models.Session) error {
		if sess.IsFinalized {
			return store.ErrUnchanged
		}
		sess.IsFinalized = true
		sess.UpdatedAt = s.clock()
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to mark session finalized")
		return false
	}
	log.Info().Str("session_id", sessionID).Msg("Session finalized")
	return true
}

// FetchLedgerRecord reads an attestation straight from the ledger.
func (s *Service) FetchLedgerRecord(ctx context.Context, handle string) (*ledger.Record, error) {
	const op = "fetch_ledger_record"

	if strings.TrimSpace(handle) == "" {
		return nil, errorf(KindValidation, op, "handle is required")
	}
	callCtx, cancel := s.ledgerCtx(ctx)
	defer cancel()

	rec, err := s.ledger.Fetch(callCtx, handle)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ledger.ErrNotFound):
		return nil, newError(KindLedgerNotFound, op, "ledger record not found", err)
	default:
		return nil, newError(KindLedgerUnavailable, op, "ledger unavailable", err)
	}
}

// LedgerBalance reports the fee payer's balance.
func (s *Service) LedgerBalance(ctx context.Context) (*ledger.Balance, error) {
	callCtx, cancel := s.ledgerCtx(ctx)
	defer cancel()

	bal, err := s.ledger.Balance(callCtx)
	if err != nil {
		return nil, newError(KindLedgerUnavailable, "ledger_balance", "ledger unavailable", err)
	}
	return bal, nil
}

// LedgerLog lists the attestation log of a session, newest first. Only the
// session's teacher or an admin may read it.
func (s *Service) LedgerLog(ctx context.Context, sessionID string, limit int, requester models.Principal) ([]audit.Entry, error) {
	const op = "ledger_log"

	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, storeError(op, err, KindNotFound, "session")
	}
	if !canManageSession(requester, sess) {
		return nil, errorf(KindForbidden, op, "only the session's teacher can read its attestation log")
	}
	entries, err := s.audit.List(ctx, sessionID, limit)
	if err != nil {
		return nil, newError(KindInfrastructure, op, "attestation log unavailable", err)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}
