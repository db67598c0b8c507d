// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/rollcall/internal/audit"
	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/ledger"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/store"
)

func failedKinds(res *models.FinalizationResult) map[string]string {
	out := make(map[string]string, len(res.FailedRecords))
	for _, f := range res.FailedRecords {
		out[f.StudentID] = f.Kind
	}
	return out
}

func finalizedIDs(res *models.FinalizationResult) []string {
	ids := make([]string, 0, len(res.FinalizedRecords))
	for _, r := range res.FinalizedRecords {
		ids = append(ids, r.StudentID)
	}
	sort.Strings(ids)
	return ids
}

func TestFinalizeAttendance_SubmitsThenFinalizes(t *testing.T) {
	f := newFixture(t, Config{Concurrency: 2})
	f.putClass(t, "c1", "t1", "s1", "s2", "s3")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1", "s2", "s3")

	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1", "s2", "s3"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if len(res.FailedRecords) != 0 {
		t.Fatalf("unexpected failures: %+v", res.FailedRecords)
	}
	if got := finalizedIDs(res); fmt.Sprint(got) != "[s1 s2 s3]" {
		t.Errorf("finalized = %v", got)
	}
	for _, r := range res.FinalizedRecords {
		if r.BroadcastTransactionSignature == "" || r.FinalizationTransactionSignature == "" {
			t.Errorf("missing signatures: %+v", r)
		}
		stored, err := f.store.GetRecord(context.Background(), sess.ID, r.StudentID)
		if err != nil {
			t.Fatalf("GetRecord: %v", err)
		}
		if !stored.IsFinalized || !stored.IsBroadcasted || !stored.IsPresent || stored.FinalizedAt == nil {
			t.Errorf("stored record = %+v", stored)
		}
		if stored.BroadcastTransactionSignature != r.BroadcastTransactionSignature {
			t.Errorf("stored handle %q != reported %q", stored.BroadcastTransactionSignature, r.BroadcastTransactionSignature)
		}
	}
	if f.ledger.Submits() != 3 || f.ledger.Finalizes() != 3 {
		t.Errorf("ledger calls submit=%d finalize=%d, want 3/3", f.ledger.Submits(), f.ledger.Finalizes())
	}
	if f.log.Len() != 6 {
		t.Errorf("audit entries = %d, want 6", f.log.Len())
	}
	if n := f.events.count(events.AttendanceFinalized); n != 3 {
		t.Errorf("attendance.finalized events = %d, want 3", n)
	}
	if res.SessionFinalized {
		t.Error("session finalized before it ended")
	}
}

func TestFinalizeAttendance_ResumesBroadcastRecord(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1")

	// A previous run submitted and persisted the handle, then died.
	const handle = "handle-from-previous-run"
	f.ledger.Seed(handle, ledger.Submission{SessionID: sess.ID, StudentID: "s1", IsPresent: true})
	if _, err := f.store.UpdateRecord(context.Background(), sess.ID, "s1", func(r *models.AttendanceRecord, _ bool) error {
		r.IsBroadcasted = true
		r.BroadcastTransactionSignature = handle
		return nil
	}); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}

	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if len(res.FinalizedRecords) != 1 || res.FinalizedRecords[0].BroadcastTransactionSignature != handle {
		t.Fatalf("result = %+v", res)
	}
	if f.ledger.Submits() != 0 {
		t.Errorf("submit called %d times on a broadcast record", f.ledger.Submits())
	}
	if f.ledger.Finalizes() != 1 {
		t.Errorf("finalize called %d times, want 1", f.ledger.Finalizes())
	}
}

func TestFinalizeAttendance_FinalizeFailureIsResumable(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1")

	f.ledger.FinalizeHook = func(string) error { return errors.New("finality timeout") }
	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if got := failedKinds(res)["s1"]; got != KindLedgerFinalizeFailed.String() {
		t.Fatalf("failure kind = %q, want LedgerFinalizeFailed", got)
	}

	stored, err := f.store.GetRecord(context.Background(), sess.ID, "s1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if !stored.Resumable() || stored.BroadcastTransactionSignature == "" {
		t.Fatalf("record not left broadcast: %+v", stored)
	}
	handle := stored.BroadcastTransactionSignature

	f.ledger.FinalizeHook = nil
	res, err = f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance (retry): %v", err)
	}
	if len(res.FinalizedRecords) != 1 || res.FinalizedRecords[0].BroadcastTransactionSignature != handle {
		t.Fatalf("retry result = %+v", res)
	}
	if f.ledger.Submits() != 1 {
		t.Errorf("submits = %d, want exactly 1 across both runs", f.ledger.Submits())
	}
}

func TestFinalizeAttendance_PartialFailure(t *testing.T) {
	f := newFixture(t, Config{Concurrency: 3})
	f.putClass(t, "c1", "t1", "ok1", "ok2", "absent", "flaky")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "ok1", "ok2", "flaky")

	f.ledger.SubmitHook = func(sub ledger.Submission) error {
		if sub.StudentID == "flaky" {
			return errors.New("insufficient funds")
		}
		return nil
	}

	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID,
		[]string{"ok1", "absent", "ghost", "flaky", "ok2"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}

	if got := finalizedIDs(res); fmt.Sprint(got) != "[ok1 ok2]" {
		t.Errorf("finalized = %v", got)
	}
	want := map[string]string{
		"absent": KindNotPresent.String(),
		"ghost":  KindRecordNotFound.String(),
		"flaky":  KindLedgerSubmitFailed.String(),
	}
	got := failedKinds(res)
	if len(got) != len(want) {
		t.Fatalf("failures = %v, want %v", got, want)
	}
	for id, kind := range want {
		if got[id] != kind {
			t.Errorf("%s failed with %q, want %q", id, got[id], kind)
		}
	}

	flaky, err := f.store.GetRecord(context.Background(), sess.ID, "flaky")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if flaky.IsBroadcasted || flaky.BroadcastTransactionSignature != "" {
		t.Errorf("submit failure mutated the record: %+v", flaky)
	}

	entries, err := f.log.ListBySession(context.Background(), sess.ID, 0)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	failures := 0
	for _, e := range entries {
		if e.Outcome == audit.OutcomeFailure {
			failures++
			if e.StudentID != "flaky" || e.Operation != audit.OpSubmit {
				t.Errorf("unexpected failure entry: %+v", e)
			}
		}
	}
	if failures != 1 {
		t.Errorf("failure entries = %d, want 1", failures)
	}
}

func TestFinalizeAttendance_FinalizeOnce(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1")

	if _, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher); err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	first, err := f.store.GetRecord(context.Background(), sess.ID, "s1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}

	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance (again): %v", err)
	}
	if got := failedKinds(res)["s1"]; got != KindAlreadyFinalized.String() {
		t.Errorf("second run kind = %q, want AlreadyFinalized", got)
	}
	if f.ledger.Submits() != 1 || f.ledger.Finalizes() != 1 {
		t.Errorf("ledger calls submit=%d finalize=%d, want 1/1", f.ledger.Submits(), f.ledger.Finalizes())
	}

	second, err := f.store.GetRecord(context.Background(), sess.ID, "s1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if second.FinalizationTransactionSignature != first.FinalizationTransactionSignature {
		t.Error("finalization signature changed")
	}
}

func TestFinalizeAttendance_DuplicateIDsProcessedOnce(t *testing.T) {
	f := newFixture(t, Config{Concurrency: 4})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1")

	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1", "s1", "s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if len(res.FinalizedRecords) != 1 || len(res.FailedRecords) != 0 {
		t.Errorf("result = %+v", res)
	}
	if f.ledger.Submits() != 1 {
		t.Errorf("submits = %d, want 1", f.ledger.Submits())
	}
}

func TestFinalizeAttendance_RecoversLedgerSideFinalization(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1")

	// The ledger sealed the record but the signature never reached the store.
	const handle = "sealed-elsewhere"
	f.ledger.Seed(handle, ledger.Submission{SessionID: sess.ID, StudentID: "s1", IsPresent: true})
	conf, err := f.ledger.Finalize(context.Background(), handle)
	if err != nil {
		t.Fatalf("ledger Finalize: %v", err)
	}
	if _, err := f.store.UpdateRecord(context.Background(), sess.ID, "s1", func(r *models.AttendanceRecord, _ bool) error {
		r.IsBroadcasted = true
		r.BroadcastTransactionSignature = handle
		return nil
	}); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}

	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if len(res.FinalizedRecords) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if got := res.FinalizedRecords[0].FinalizationTransactionSignature; got != conf.Signature {
		t.Errorf("signature = %q, want %q", got, conf.Signature)
	}
}

// blockingLedger never answers until the caller gives up.
type blockingLedger struct{ ledger.Memory }

func (b *blockingLedger) Submit(ctx context.Context, _ ledger.Submission) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestFinalizeAttendance_LedgerTimeout(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1")

	svc, err := NewService(Config{CallTimeout: 20 * time.Millisecond}, Deps{
		Store:  f.store,
		Ledger: &blockingLedger{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	res, err := svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if got := failedKinds(res)["s1"]; got != KindLedgerSubmitFailed.String() {
		t.Errorf("kind = %q, want LedgerSubmitFailed", got)
	}
	if len(res.FailedRecords) == 1 && res.FailedRecords[0].Error == "" {
		t.Error("failure has no message")
	}
}

func TestFinalizeAttendance_StructuralErrors(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)

	tests := []struct {
		name      string
		sessionID string
		students  []string
		requester models.Principal
		want      Kind
	}{
		{"missing_session_id", "", []string{"s1"}, teacher, KindValidation},
		{"empty_students", sess.ID, nil, teacher, KindValidation},
		{"blank_students", sess.ID, []string{" ", ""}, teacher, KindValidation},
		{"unknown_session", "missing", []string{"s1"}, teacher, KindNotFound},
		{"other_teacher", sess.ID, []string{"s1"}, other, KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.FinalizeAttendance(context.Background(), tt.sessionID, tt.students, tt.requester)
			assertKind(t, err, tt.want)
		})
	}
}

func TestFinalizeAttendance_SessionFinalized(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1", "s2", "s3")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1", "s2")
	if _, err := f.svc.EndSession(context.Background(), sess.ID, teacher); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if res.SessionFinalized {
		t.Fatal("session finalized with a present record outstanding")
	}

	res, err = f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s2", "s3"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if !res.SessionFinalized {
		t.Fatalf("session not finalized: %+v", res)
	}
	stored, err := f.svc.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.State() != models.SessionFinalized {
		t.Errorf("state = %s, want finalized", stored.State())
	}
}

func TestLedgerQueries(t *testing.T) {
	f := newFixture(t, Config{SubmitOnMark: true})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)
	rec, err := f.svc.MarkPresence(context.Background(), sess.ID, "s1")
	if err != nil {
		t.Fatalf("MarkPresence: %v", err)
	}

	t.Run("fetch", func(t *testing.T) {
		got, err := f.svc.FetchLedgerRecord(context.Background(), rec.BroadcastTransactionSignature)
		if err != nil {
			t.Fatalf("FetchLedgerRecord: %v", err)
		}
		if got.StudentID != "s1" || got.IsFinalized {
			t.Errorf("record = %+v", got)
		}
	})
	t.Run("fetch_unknown", func(t *testing.T) {
		_, err := f.svc.FetchLedgerRecord(context.Background(), "nope")
		assertKind(t, err, KindLedgerNotFound)
	})
	t.Run("fetch_blank", func(t *testing.T) {
		_, err := f.svc.FetchLedgerRecord(context.Background(), "")
		assertKind(t, err, KindValidation)
	})
	t.Run("balance", func(t *testing.T) {
		if _, err := f.svc.LedgerBalance(context.Background()); err != nil {
			t.Fatalf("LedgerBalance: %v", err)
		}
	})
	t.Run("log", func(t *testing.T) {
		entries, err := f.svc.LedgerLog(context.Background(), sess.ID, 0, teacher)
		if err != nil {
			t.Fatalf("LedgerLog: %v", err)
		}
		if len(entries) != 1 || entries[0].Operation != audit.OpSubmit {
			t.Errorf("entries = %+v", entries)
		}
	})
	t.Run("log_unknown_session", func(t *testing.T) {
		_, err := f.svc.LedgerLog(context.Background(), "missing", 0, teacher)
		assertKind(t, err, KindNotFound)
	})
	t.Run("log_other_teacher", func(t *testing.T) {
		_, err := f.svc.LedgerLog(context.Background(), sess.ID, 0, other)
		assertKind(t, err, KindForbidden)
	})
	t.Run("log_student", func(t *testing.T) {
		_, err := f.svc.LedgerLog(context.Background(), sess.ID, 0, pupil)
		assertKind(t, err, KindForbidden)
	})
	t.Run("log_admin", func(t *testing.T) {
		entries, err := f.svc.LedgerLog(context.Background(), sess.ID, 0, admin)
		if err != nil || len(entries) != 1 {
			t.Errorf("admin LedgerLog = %d entries, %v", len(entries), err)
		}
	})
}

// failingRecordStore fails the first UpdateRecord for one student, after the
// ledger call that preceded it has already succeeded.
type failingRecordStore struct {
	Store
	studentID string

	mu     sync.Mutex
	failed bool
}

func (s *failingRecordStore) UpdateRecord(ctx context.Context, sessionID, studentID string, fn store.RecordMutator) (*models.AttendanceRecord, error) {
	s.mu.Lock()
	fail := studentID == s.studentID && !s.failed
	if fail {
		s.failed = true
	}
	s.mu.Unlock()
	if fail {
		return nil, errors.New("disk full")
	}
	return s.Store.UpdateRecord(ctx, sessionID, studentID, fn)
}

func TestFinalizeAttendance_LostHandleIsRecovered(t *testing.T) {
	f := newFixtureWithStore(t, Config{}, func(st Store) Store {
		return &failingRecordStore{Store: st, studentID: "s2"}
	})
	f.putClass(t, "c1", "t1", "s1", "s2", "s3")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1", "s2", "s3")
	ctx := context.Background()

	res, err := f.svc.FinalizeAttendance(ctx, sess.ID, []string{"s1", "s2", "s3"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if got := finalizedIDs(res); fmt.Sprint(got) != "[s1 s3]" {
		t.Errorf("finalized = %v, want [s1 s3]", got)
	}
	if got := failedKinds(res); len(got) != 1 || got["s2"] != KindInfrastructure.String() {
		t.Fatalf("failures = %v, want s2 Infrastructure", got)
	}

	lost, err := f.store.GetRecord(ctx, sess.ID, "s2")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if lost.IsBroadcasted || lost.BroadcastTransactionSignature != "" {
		t.Fatalf("unpersisted handle leaked into the record: %+v", lost)
	}
	onLedger, err := f.ledger.FetchByAccount(ctx, sess.ID, "s2")
	if err != nil {
		t.Fatalf("ledger should hold the lost attestation: %v", err)
	}

	res, err = f.svc.FinalizeAttendance(ctx, sess.ID, []string{"s2"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance (retry): %v", err)
	}
	if len(res.FinalizedRecords) != 1 || len(res.FailedRecords) != 0 {
		t.Fatalf("retry result = %+v", res)
	}
	if got := res.FinalizedRecords[0].BroadcastTransactionSignature; got != onLedger.Handle {
		t.Errorf("retry handle = %q, want the ledger's existing %q", got, onLedger.Handle)
	}
	if f.ledger.Submits() != 4 || f.ledger.Finalizes() != 3 {
		t.Errorf("ledger calls submit=%d finalize=%d, want 4/3", f.ledger.Submits(), f.ledger.Finalizes())
	}

	entries, err := f.log.ListBySession(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	recovered := 0
	for _, e := range entries {
		if e.Outcome == audit.OutcomeRecovered {
			recovered++
			if e.StudentID != "s2" || e.Handle != onLedger.Handle {
				t.Errorf("recovered entry = %+v", e)
			}
		}
	}
	if recovered != 1 {
		t.Errorf("recovered entries = %d, want 1", recovered)
	}
}

func TestFinalizeAttendance_DuplicateWithDifferentFactConflicts(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)
	f.mark(t, sess.ID, "s1")
	f.ledger.Seed("stale", ledger.Submission{SessionID: sess.ID, StudentID: "s1", IsPresent: false})

	res, err := f.svc.FinalizeAttendance(context.Background(), sess.ID, []string{"s1"}, teacher)
	if err != nil {
		t.Fatalf("FinalizeAttendance: %v", err)
	}
	if got := failedKinds(res)["s1"]; got != KindConflict.String() {
		t.Fatalf("kind = %q, want Conflict", got)
	}
	rec, err := f.store.GetRecord(context.Background(), sess.ID, "s1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.IsBroadcasted {
		t.Errorf("conflicting attestation was adopted: %+v", rec)
	}
	if f.ledger.Finalizes() != 0 {
		t.Errorf("finalize called %d times", f.ledger.Finalizes())
	}
}
