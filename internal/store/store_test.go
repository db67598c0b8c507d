// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/rollcall/internal/models"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSession(id, classID string, start time.Time, d time.Duration) *models.Session {
	return &models.Session{
		ID:        id,
		ClassID:   classID,
		Name:      id,
		Date:      start,
		StartTime: start,
		EndTime:   start.Add(d),
		TeacherID: "t1",
		CreatedAt: start,
	}
}

func seed(sessionID string, students ...string) []*models.AttendanceRecord {
	recs := make([]*models.AttendanceRecord, len(students))
	for i, st := range students {
		recs[i] = &models.AttendanceRecord{SessionID: sessionID, StudentID: st, MarkedBy: "t1"}
	}
	return recs
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error without path")
	}
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := s.PutClass(ctx, &models.Class{ID: "c1", Name: "Math"}); err != nil {
		t.Fatalf("PutClass: %v", err)
	}
	if err := s.RunGC(ctx); err != nil {
		t.Errorf("RunGC: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.GetClass(ctx, "c1"); err != nil {
		t.Errorf("class should survive reopen: %v", err)
	}
}

func TestStore_Closed(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := s.GetSession(context.Background(), "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("GetSession after close = %v, want ErrClosed", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after close = %v, want ErrClosed", err)
	}
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Ping(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Ping(canceled) = %v", err)
	}
}

func TestClasses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetClass(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetClass(missing) = %v, want ErrNotFound", err)
	}

	for _, c := range []*models.Class{
		{ID: "c2", Name: "Physics", TeacherID: "t1", Students: []string{"s1"}},
		{ID: "c1", Name: "Algebra", TeacherID: "t1", Students: []string{"s1", "s2"}},
		{ID: "c3", Name: "Art", TeacherID: "t2"},
	} {
		if err := s.PutClass(ctx, c); err != nil {
			t.Fatalf("PutClass(%s): %v", c.ID, err)
		}
	}

	got, err := s.ListClassesByTeacher(ctx, "t1")
	if err != nil {
		t.Fatalf("ListClassesByTeacher: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Algebra" || got[1].Name != "Physics" {
		t.Fatalf("classes = %+v", got)
	}

	t.Run("reassign_teacher_moves_index", func(t *testing.T) {
		if err := s.PutClass(ctx, &models.Class{ID: "c2", Name: "Physics", TeacherID: "t2"}); err != nil {
			t.Fatalf("PutClass: %v", err)
		}
		t1, _ := s.ListClassesByTeacher(ctx, "t1")
		t2, _ := s.ListClassesByTeacher(ctx, "t2")
		if len(t1) != 1 || len(t2) != 2 {
			t.Errorf("t1=%d t2=%d classes", len(t1), len(t2))
		}
	})

	t.Run("created_at_preserved", func(t *testing.T) {
		before, _ := s.GetClass(ctx, "c1")
		if err := s.PutClass(ctx, &models.Class{ID: "c1", Name: "Algebra II", TeacherID: "t1"}); err != nil {
			t.Fatal(err)
		}
		after, _ := s.GetClass(ctx, "c1")
		if !after.CreatedAt.Equal(before.CreatedAt) || after.Name != "Algebra II" {
			t.Errorf("before=%+v after=%+v", before, after)
		}
	})
}

func TestCreateSessionWithRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := testSession("sess-1", "c1", base, time.Hour)
	if err := s.CreateSessionWithRecords(ctx, sess, seed("sess-1", "s1", "s2", "s3")); err != nil {
		t.Fatalf("CreateSessionWithRecords: %v", err)
	}

	recs, err := s.ListRecordsBySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ListRecordsBySession: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	for id, r := range recs {
		if r.IsPresent || r.MarkedBy != "t1" {
			t.Errorf("record %s = %+v", id, r)
		}
	}

	if err := s.CreateSessionWithRecords(ctx, testSession("sess-1", "c9", base.Add(24*time.Hour), time.Hour), nil); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate id = %v, want ErrExists", err)
	}
}

func TestCreateSessionWithRecords_Overlap(t *testing.T) {
	tests := []struct {
		name        string
		start       time.Time
		duration    time.Duration
		classID     string
		wantOverlap bool
	}{
		{"same_window", base, time.Hour, "c1", true},
		{"starts_inside", base.Add(30 * time.Minute), time.Hour, "c1", true},
		{"encloses", base.Add(-time.Hour), 3 * time.Hour, "c1", true},
		{"touching_end_allowed", base.Add(time.Hour), time.Hour, "c1", false},
		{"touching_start_allowed", base.Add(-time.Hour), time.Hour, "c1", false},
		{"other_class_allowed", base, time.Hour, "c2", false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			ctx := context.Background()
			if err := s.CreateSessionWithRecords(ctx, testSession("existing", "c1", base, time.Hour), nil); err != nil {
				t.Fatal(err)
			}

			err := s.CreateSessionWithRecords(ctx, testSession(fmt.Sprintf("new-%d", i), tt.classID, tt.start, tt.duration), seed(fmt.Sprintf("new-%d", i), "s1"))
			var overlap *OverlapError
			if got := errors.As(err, &overlap); got != tt.wantOverlap {
				t.Fatalf("overlap = %v (err %v), want %v", got, err, tt.wantOverlap)
			}
			if tt.wantOverlap {
				if overlap.Existing.ID != "existing" {
					t.Errorf("Existing = %s", overlap.Existing.ID)
				}
				recs, _ := s.ListRecordsBySession(ctx, fmt.Sprintf("new-%d", i))
				if len(recs) != 0 {
					t.Error("rejected session must not seed records")
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateSessionWithRecords_ConcurrentOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	var created, overlapped atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateSessionWithRecords(ctx, testSession(fmt.Sprintf("race-%d", i), "c1", base.Add(time.Duration(i)*time.Minute), time.Hour), nil)
			var overlap *OverlapError
			switch {
			case err == nil:
				created.Add(1)
			case errors.As(err, &overlap):
				overlapped.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 || overlapped.Load() != n-1 {
		t.Errorf("created=%d overlapped=%d", created.Load(), overlapped.Load())
	}
	sessions, err := s.ListSessionsByClass(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Errorf("stored %d sessions, want 1", len(sessions))
	}
}

func TestUpdateSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateSessionWithRecords(ctx, testSession("sess-1", "c1", base, time.Hour), nil); err != nil {
		t.Fatal(err)
	}

	t.Run("writes_mutation", func(t *testing.T) {
		got, err := s.UpdateSession(ctx, "sess-1", func(sess *models.Session) error {
			sess.IsStarted = true
			return nil
		})
		if err != nil || !got.IsStarted {
			t.Fatalf("got %+v, %v", got, err)
		}
		stored, _ := s.GetSession(ctx, "sess-1")
		if !stored.IsStarted {
			t.Error("mutation not persisted")
		}
	})

	t.Run("unchanged_skips_write", func(t *testing.T) {
		got, err := s.UpdateSession(ctx, "sess-1", func(sess *models.Session) error {
			sess.Name = "discarded"
			return ErrUnchanged
		})
		if err != nil {
			t.Fatal(err)
		}
		if got.Name != "sess-1" {
			t.Errorf("returned name = %q, want stored value", got.Name)
		}
		stored, _ := s.GetSession(ctx, "sess-1")
		if stored.Name != "sess-1" {
			t.Errorf("stored name = %q, want unchanged", stored.Name)
		}
	})

	t.Run("error_aborts", func(t *testing.T) {
		boom := errors.New("boom")
		if _, err := s.UpdateSession(ctx, "sess-1", func(*models.Session) error { return boom }); !errors.Is(err, boom) {
			t.Errorf("err = %v, want boom", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := s.UpdateSession(ctx, "nope", func(*models.Session) error { return nil }); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestUpdateSession_MovedWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, sess := range []*models.Session{
		testSession("first", "c1", base, time.Hour),
		testSession("second", "c1", base.Add(2*time.Hour), time.Hour),
		testSession("elsewhere", "c2", base.Add(time.Hour), time.Hour),
	} {
		if err := s.CreateSessionWithRecords(ctx, sess, nil); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name        string
		start       time.Time
		wantOverlap string
		wantInvalid bool
	}{
		{"inverted", base.Add(4 * time.Hour), "", true},
		{"empty", base.Add(3 * time.Hour), "", true},
		{"into_neighbour", base.Add(30 * time.Minute), "first", false},
		{"touching_neighbour", base.Add(time.Hour), "", false},
		{"later_inside_own_window", base.Add(150 * time.Minute), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := s.GetSession(ctx, "second")
			if err != nil {
				t.Fatal(err)
			}
			got, err := s.UpdateSession(ctx, "second", func(sess *models.Session) error {
				sess.StartTime = tt.start
				return nil
			})

			var overlap *OverlapError
			switch {
			case tt.wantInvalid:
				if !errors.Is(err, ErrInvalidWindow) {
					t.Fatalf("err = %v, want ErrInvalidWindow", err)
				}
			case tt.wantOverlap != "":
				if !errors.As(err, &overlap) || overlap.Existing.ID != tt.wantOverlap {
					t.Fatalf("err = %v, want overlap with %s", err, tt.wantOverlap)
				}
			default:
				if err != nil {
					t.Fatalf("UpdateSession: %v", err)
				}
				if !got.StartTime.Equal(tt.start) {
					t.Errorf("StartTime = %v, want %v", got.StartTime, tt.start)
				}
				return
			}

			stored, _ := s.GetSession(ctx, "second")
			if !stored.StartTime.Equal(before.StartTime) {
				t.Errorf("rejected move persisted: %v", stored.StartTime)
			}
		})
	}
}

func TestUpsertRecord_FirstWriterWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	var inserts, updates atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpsertRecord(ctx, "sess-1", "s1", func(rec *models.AttendanceRecord, existed bool) error {
				if existed {
					return ErrUnchanged
				}
				rec.IsPresent = true
				rec.MarkedBy = fmt.Sprintf("writer-%d", i)
				return nil
			})
			if err != nil {
				t.Errorf("UpsertRecord: %v", err)
			}
		}(i)
	}
	wg.Wait()

	rec, err := s.GetRecord(ctx, "sess-1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.IsPresent || rec.MarkedBy == "" {
		t.Errorf("record = %+v", rec)
	}

	// Observe which writer won and check no later writer replaced it.
	winner := rec.MarkedBy
	for i := 0; i < 3; i++ {
		_, _ = s.UpsertRecord(ctx, "sess-1", "s1", func(r *models.AttendanceRecord, existed bool) error {
			if existed {
				updates.Add(1)
				return ErrUnchanged
			}
			inserts.Add(1)
			return nil
		})
	}
	rec, _ = s.GetRecord(ctx, "sess-1", "s1")
	if rec.MarkedBy != winner || inserts.Load() != 0 || updates.Load() != 3 {
		t.Errorf("winner changed or reinserted: %+v inserts=%d", rec, inserts.Load())
	}
}

func TestUpdateRecord_Missing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateRecord(context.Background(), "sess-1", "ghost", func(*models.AttendanceRecord, bool) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListRecordsByStudent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b"} {
		sess := testSession(id, "c1", base.Add(time.Duration(i)*2*time.Hour), time.Hour)
		if err := s.CreateSessionWithRecords(ctx, sess, seed(id, "s1", "s2")); err != nil {
			t.Fatal(err)
		}
	}
	// Lazily created record in a session without seeding.
	if err := s.CreateSessionWithRecords(ctx, testSession("c", "c2", base, time.Hour), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertRecord(ctx, "c", "s1", func(r *models.AttendanceRecord, _ bool) error {
		r.IsPresent = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListRecordsByStudent(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for _, sr := range got {
		if sr.Session.ID != sr.Record.SessionID {
			t.Errorf("mismatched pair %s / %s", sr.Session.ID, sr.Record.SessionID)
		}
	}
}

func TestListSessionsByClass_SortedByStart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, tc := range []struct {
		id     string
		offset time.Duration
	}{{"late", 5 * time.Hour}, {"early", 0}, {"mid", 2 * time.Hour}} {
		if err := s.CreateSessionWithRecords(ctx, testSession(tc.id, "c1", base.Add(tc.offset), time.Hour), nil); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListSessionsByClass(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "early" || got[1].ID != "mid" || got[2].ID != "late" {
		ids := make([]string, len(got))
		for i, s := range got {
			ids[i] = s.ID
		}
		t.Errorf("order = %v", ids)
	}
}
