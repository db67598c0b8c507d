// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package models

import "time"

// SessionState is the derived lifecycle position of a session.
type SessionState string

const (
	SessionScheduled SessionState = "scheduled"
	SessionStarted   SessionState = "started"
	SessionEnded     SessionState = "ended"
	SessionFinalized SessionState = "finalized"
)

// Session is one scheduled meeting of a class during which attendance is collected.
//
// The window [StartTime, EndTime) is half-open. Two sessions of the same
// class never overlap.
type Session struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	TeacherID   string    `json:"teacher_id"`
	CreatedBy   string    `json:"created_by"`
	IsStarted   bool      `json:"is_started"`
	IsCompleted bool      `json:"is_completed"`
	IsFinalized bool      `json:"is_finalized"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// State derives the lifecycle state from the flags.
func (s *Session) State() SessionState {
	switch {
	case s.IsFinalized:
		return SessionFinalized
	case s.IsCompleted:
		return SessionEnded
	case s.IsStarted:
		return SessionStarted
	default:
		return SessionScheduled
	}
}

// Overlaps applies the half-open interval test: touching windows do not overlap.
func (s *Session) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}

// StudentPresence is one row of the attendance view: whether the roster
// student has a record for the session and what it says.
type StudentPresence struct {
	StudentID   string     `json:"student_id"`
	HasRecord   bool       `json:"has_record"`
	IsPresent   bool       `json:"is_present"`
	MarkedAt    *time.Time `json:"marked_at,omitempty"`
	IsFinalized bool       `json:"is_finalized"`
}

// SessionView is returned by select-or-start: the session plus the
// materialized attendance of its roster.
type SessionView struct {
	Session        *Session          `json:"session"`
	AlreadyStarted bool              `json:"already_started"`
	Attendance     []StudentPresence `json:"attendance"`
}

// PresentStudentIDs lists the students currently marked present.
func (v *SessionView) PresentStudentIDs() []string {
	ids := make([]string, 0, len(v.Attendance))
	for _, a := range v.Attendance {
		if a.IsPresent {
			ids = append(ids, a.StudentID)
		}
	}
	return ids
}
