// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/rollcall/internal/models"
)

func TestAttendancePercentage(t *testing.T) {
	tests := []struct {
		present, total int
		want           string
	}{
		{0, 0, "0.00%"},
		{0, 3, "0.00%"},
		{2, 3, "66.67%"},
		{1, 3, "33.33%"},
		{4, 4, "100.00%"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := attendancePercentage(tt.present, tt.total); got != tt.want {
				t.Errorf("attendancePercentage(%d, %d) = %q, want %q", tt.present, tt.total, got, tt.want)
			}
		})
	}
}

func TestStudentSummary(t *testing.T) {
	f := newFixture(t, Config{})
	f.putClass(t, "c1", "t1", "s1")
	f.putClass(t, "c2", "t1", "s1")

	first := f.startSession(t, "c1", base)
	second := f.startSession(t, "c1", base.Add(24*time.Hour))
	third := f.startSession(t, "c1", base.Add(48*time.Hour))
	f.startSession(t, "c2", base)

	f.mark(t, first.ID, "s1")
	f.mark(t, third.ID, "s1")

	summary, err := f.svc.StudentSummary(context.Background(), "s1", pupil)
	if err != nil {
		t.Fatalf("StudentSummary: %v", err)
	}
	if len(summary.Classes) != 2 {
		t.Fatalf("classes = %d, want 2", len(summary.Classes))
	}

	c1 := summary.Classes[0]
	if c1.ClassID != "c1" || c1.ClassName != "Class c1" {
		t.Fatalf("first class = %+v", c1)
	}
	if c1.TotalSessions != 3 || c1.PresentCount != 2 || c1.AttendancePercentage != "66.67%" {
		t.Errorf("c1 totals = %d/%d %s", c1.PresentCount, c1.TotalSessions, c1.AttendancePercentage)
	}
	wantOrder := []string{third.ID, second.ID, first.ID}
	for i, s := range c1.Sessions {
		if s.SessionID != wantOrder[i] {
			t.Errorf("sessions[%d] = %s, want %s (newest first)", i, s.SessionID, wantOrder[i])
		}
	}

	c2 := summary.Classes[1]
	if c2.TotalSessions != 1 || c2.PresentCount != 0 || c2.AttendancePercentage != "0.00%" {
		t.Errorf("c2 = %+v", c2)
	}
}

func TestStudentSummary_Access(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		name      string
		studentID string
		requester models.Principal
		want      Kind
	}{
		{"own_summary", "s1", pupil, KindUnknown},
		{"other_student", "s2", pupil, KindForbidden},
		{"teacher_reads_any", "s2", teacher, KindUnknown},
		{"admin_reads_any", "s2", admin, KindUnknown},
		{"blank_id", "", admin, KindValidation},
		{"unknown_role", "s1", models.Principal{ID: "x"}, KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := f.svc.StudentSummary(context.Background(), tt.studentID, tt.requester)
			if tt.want == KindUnknown {
				if err != nil {
					t.Fatalf("StudentSummary: %v", err)
				}
				if summary.Classes == nil {
					t.Error("Classes should be an empty slice, not nil")
				}
				return
			}
			assertKind(t, err, tt.want)
		})
	}
}
