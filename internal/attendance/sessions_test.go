// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/models"
)

func TestStartSession_SeedsEveryRosterStudent(t *testing.T) {
	f := newFixture(t, Config{})
	roster := []string{"s1", "s2", "s3", "s4", "s5"}
	f.putClass(t, "c1", "t1", append(roster, "s3", "")...)

	sess := f.startSession(t, "c1", base)

	records, err := f.store.ListRecordsBySession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("ListRecordsBySession: %v", err)
	}
	if len(records) != len(roster) {
		t.Fatalf("seeded %d records, want %d", len(records), len(roster))
	}
	for _, id := range roster {
		rec, ok := records[id]
		if !ok {
			t.Errorf("missing record for %s", id)
			continue
		}
		if rec.IsPresent || rec.MarkedBy != teacher.ID || rec.IsBroadcasted {
			t.Errorf("seeded record for %s = %+v", id, rec)
		}
	}
	if sess.TeacherID != "t1" || sess.CreatedBy != teacher.ID || sess.IsStarted {
		t.Errorf("session = %+v", sess)
	}
	if !sess.Date.Equal(base) {
		t.Errorf("Date = %v, want start time %v", sess.Date, base)
	}
}

func TestStartSession_Errors(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	f.putClass(t, "orphan", "", "s1")

	valid := StartSessionInput{ClassID: "c1", Name: "Lecture", StartTime: base, EndTime: base.Add(time.Hour)}

	tests := []struct {
		name      string
		mutate    func(*StartSessionInput)
		requester models.Principal
		want      Kind
	}{
		{"missing_name", func(in *StartSessionInput) { in.Name = "  " }, teacher, KindValidation},
		{"missing_class", func(in *StartSessionInput) { in.ClassID = "" }, teacher, KindValidation},
		{"end_equals_start", func(in *StartSessionInput) { in.EndTime = in.StartTime }, teacher, KindValidation},
		{"end_before_start", func(in *StartSessionInput) { in.EndTime = in.StartTime.Add(-time.Minute) }, teacher, KindValidation},
		{"missing_window", func(in *StartSessionInput) { in.StartTime = time.Time{} }, teacher, KindValidation},
		{"unknown_class", func(in *StartSessionInput) { in.ClassID = "nope" }, teacher, KindNotFound},
		{"class_without_teacher", func(in *StartSessionInput) { in.ClassID = "orphan" }, admin, KindInvalidState},
		{"student_requester", func(*StartSessionInput) {}, pupil, KindForbidden},
		{"other_teacher", func(*StartSessionInput) {}, other, KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.svc.StartSession(context.Background(), in, tt.requester)
			assertKind(t, err, tt.want)
		})
	}
}

func TestStartSession_Overlap(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{"identical", base, base.Add(time.Hour), true},
		{"starts_inside", base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"ends_inside", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"contains", base.Add(-time.Hour), base.Add(2 * time.Hour), true},
		{"touching_after", base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"touching_before", base.Add(-time.Hour), base, false},
		{"disjoint", base.Add(3 * time.Hour), base.Add(4 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.putClass(t, "c1", "t1", "s1")
			f.putClass(t, "c2", "t1", "s1")
			f.startSession(t, "c1", base)

			_, err := f.svc.StartSession(context.Background(), StartSessionInput{
				ClassID: "c1", Name: "Second", StartTime: tt.start, EndTime: tt.end,
			}, teacher)
			if tt.wantErr {
				assertKind(t, err, KindConflict)
			} else if err != nil {
				t.Fatalf("StartSession: %v", err)
			}

			// Other classes are never affected.
			if _, err := f.svc.StartSession(context.Background(), StartSessionInput{
				ClassID: "c2", Name: "Other", StartTime: tt.start, EndTime: tt.end,
			}, teacher); err != nil {
				t.Errorf("other class StartSession: %v", err)
			}
		})
	}
}

func TestStartSession_ConcurrentOverlapOneWins(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1", "s2")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := base.Add(time.Duration(i) * time.Minute)
			_, err := f.svc.StartSession(context.Background(), StartSessionInput{
				ClassID: "c1", Name: "Race", StartTime: start, EndTime: start.Add(time.Hour),
			}, teacher)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case KindOf(err) == KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Errorf("successes=%d conflicts=%d, want 1 and %d", successes, conflicts, workers-1)
	}
}

func TestSelectOrStartSession(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1", "s2", "s3")
	sess := f.startSession(t, "c1", base)

	startedAt := base.Add(2 * time.Minute)
	f.now = startedAt

	view, err := f.svc.SelectOrStartSession(context.Background(), sess.ID, teacher)
	if err != nil {
		t.Fatalf("SelectOrStartSession: %v", err)
	}
	if view.AlreadyStarted {
		t.Error("first call reported AlreadyStarted")
	}
	if !view.Session.IsStarted || !view.Session.StartTime.Equal(startedAt) {
		t.Errorf("session not started at clock time: %+v", view.Session)
	}

	f.mark(t, sess.ID, "s2")
	f.now = startedAt.Add(10 * time.Minute)

	view, err = f.svc.SelectOrStartSession(context.Background(), sess.ID, teacher)
	if err != nil {
		t.Fatalf("SelectOrStartSession (resume): %v", err)
	}
	if !view.AlreadyStarted {
		t.Error("second call did not report AlreadyStarted")
	}
	if !view.Session.StartTime.Equal(startedAt) {
		t.Errorf("resume mutated StartTime to %v", view.Session.StartTime)
	}
	if len(view.Attendance) != 3 {
		t.Fatalf("attendance rows = %d, want 3", len(view.Attendance))
	}
	for _, p := range view.Attendance {
		if !p.HasRecord {
			t.Errorf("%s has no record", p.StudentID)
		}
		if p.IsPresent != (p.StudentID == "s2") {
			t.Errorf("%s IsPresent = %v", p.StudentID, p.IsPresent)
		}
	}
	if got := view.PresentStudentIDs(); len(got) != 1 || got[0] != "s2" {
		t.Errorf("PresentStudentIDs = %v", got)
	}
	if n := f.events.count(events.SessionStarted); n != 1 {
		t.Errorf("session.started events = %d, want 1", n)
	}
}

func TestSelectOrStartSession_Errors(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)

	t.Run("unknown_session", func(t *testing.T) {
		_, err := f.svc.SelectOrStartSession(context.Background(), "missing", teacher)
		assertKind(t, err, KindNotFound)
	})
	t.Run("other_teacher", func(t *testing.T) {
		_, err := f.svc.SelectOrStartSession(context.Background(), sess.ID, other)
		assertKind(t, err, KindForbidden)
	})
	t.Run("ended_before_start", func(t *testing.T) {
		if _, err := f.svc.EndSession(context.Background(), sess.ID, teacher); err != nil {
			t.Fatalf("EndSession: %v", err)
		}
		_, err := f.svc.SelectOrStartSession(context.Background(), sess.ID, teacher)
		assertKind(t, err, KindInvalidState)
	})
}

func TestSelectOrStartSession_GuardsWindow(t *testing.T) {
	t.Run("late_start_after_end", func(t *testing.T) {
		f := newFixture(t, Config{})
		f.putClass(t, "c1", "t1", "s1")
		sess := f.startSession(t, "c1", base)

		f.now = base.Add(2 * time.Hour)
		_, err := f.svc.SelectOrStartSession(context.Background(), sess.ID, teacher)
		assertKind(t, err, KindInvalidState)

		stored, err := f.store.GetSession(context.Background(), sess.ID)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if stored.IsStarted || !stored.StartTime.Equal(base) {
			t.Errorf("rejected start was persisted: %+v", stored)
		}
	})

	t.Run("early_start_into_previous_session", func(t *testing.T) {
		f := newFixture(t, Config{})
		f.putClass(t, "c1", "t1", "s1")
		first := f.startSession(t, "c1", base)
		second := f.startSession(t, "c1", base.Add(time.Hour))

		f.now = base.Add(30 * time.Minute)
		_, err := f.svc.SelectOrStartSession(context.Background(), second.ID, teacher)
		assertKind(t, err, KindConflict)
		if !strings.Contains(err.Error(), first.ID) {
			t.Errorf("err = %v, want it to name %s", err, first.ID)
		}

		// Starting exactly at the previous session's end only touches it.
		f.now = base.Add(time.Hour)
		view, err := f.svc.SelectOrStartSession(context.Background(), second.ID, teacher)
		if err != nil {
			t.Fatalf("SelectOrStartSession: %v", err)
		}
		if !view.Session.StartTime.Equal(base.Add(time.Hour)) {
			t.Errorf("StartTime = %v", view.Session.StartTime)
		}
	})

	t.Run("early_start_into_gap", func(t *testing.T) {
		f := newFixture(t, Config{})
		f.putClass(t, "c1", "t1", "s1")
		f.startSession(t, "c1", base)
		later := f.startSession(t, "c1", base.Add(3*time.Hour))

		f.now = base.Add(90 * time.Minute)
		view, err := f.svc.SelectOrStartSession(context.Background(), later.ID, teacher)
		if err != nil {
			t.Fatalf("SelectOrStartSession: %v", err)
		}
		if !view.Session.StartTime.Equal(f.now) {
			t.Errorf("StartTime = %v, want %v", view.Session.StartTime, f.now)
		}
	})
}

func TestEndSession(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)

	tests := []struct {
		name      string
		sessionID string
		requester models.Principal
		want      Kind
	}{
		{"unknown_session", "missing", teacher, KindNotFound},
		{"other_teacher", sess.ID, other, KindForbidden},
		{"student", sess.ID, pupil, KindForbidden},
		{"blank_id", "", teacher, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.EndSession(context.Background(), tt.sessionID, tt.requester)
			assertKind(t, err, tt.want)
		})
	}

	t.Run("teacher_ends", func(t *testing.T) {
		ended, err := f.svc.EndSession(context.Background(), sess.ID, teacher)
		if err != nil {
			t.Fatalf("EndSession: %v", err)
		}
		if !ended.IsCompleted || ended.State() != models.SessionEnded {
			t.Errorf("session = %+v", ended)
		}
	})
	t.Run("admin_ends_again_without_event", func(t *testing.T) {
		if _, err := f.svc.EndSession(context.Background(), sess.ID, admin); err != nil {
			t.Fatalf("EndSession: %v", err)
		}
		if n := f.events.count(events.SessionEnded); n != 1 {
			t.Errorf("session.ended events = %d, want 1", n)
		}
	})
}

func TestWatchSession(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	sess := f.startSession(t, "c1", base)

	tests := []struct {
		name      string
		sessionID string
		requester models.Principal
		want      Kind
	}{
		{"owner", sess.ID, teacher, KindUnknown},
		{"admin", sess.ID, admin, KindUnknown},
		{"other_teacher", sess.ID, other, KindForbidden},
		{"student", sess.ID, pupil, KindForbidden},
		{"unknown_session", "missing", teacher, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.WatchSession(context.Background(), tt.sessionID, tt.requester)
			if tt.want == KindUnknown {
				if err != nil {
					t.Fatalf("WatchSession: %v", err)
				}
				if got.ID != sess.ID {
					t.Errorf("session = %s, want %s", got.ID, sess.ID)
				}
				return
			}
			assertKind(t, err, tt.want)
		})
	}
}

func TestListClassSessions(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	later := f.startSession(t, "c1", base.Add(3*time.Hour))
	earlier := f.startSession(t, "c1", base)

	sessions, err := f.svc.ListClassSessions(context.Background(), "c1")
	if err != nil {
		t.Fatalf("ListClassSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != earlier.ID || sessions[1].ID != later.ID {
		t.Errorf("sessions not ordered by start time: %v", sessions)
	}

	_, err = f.svc.ListClassSessions(context.Background(), "missing")
	assertKind(t, err, KindNotFound)
}

func TestTeacherClasses(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c2", "t1")
	f.putClass(t, "c1", "t1")
	f.putClass(t, "c3", "t2")

	classes, err := f.svc.TeacherClasses(context.Background(), "t1")
	if err != nil {
		t.Fatalf("TeacherClasses: %v", err)
	}
	if len(classes) != 2 || classes[0].ID != "c1" || classes[1].ID != "c2" {
		t.Errorf("classes = %v", classes)
	}
}

func TestPutClass_Validation(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.svc.PutClass(context.Background(), &models.Class{Name: "No id"})
	assertKind(t, err, KindValidation)
	_, err = f.svc.PutClass(context.Background(), &models.Class{ID: "c1"})
	assertKind(t, err, KindValidation)

	class, err := f.svc.PutClass(context.Background(), &models.Class{ID: "c1", Name: "Math", Students: []string{"a", "a", "b"}})
	if err != nil {
		t.Fatalf("PutClass: %v", err)
	}
	if len(class.Students) != 2 || class.CreatedAt.IsZero() {
		t.Errorf("class = %+v", class)
	}
}
