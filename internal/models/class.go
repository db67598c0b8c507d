// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package models

import (
	"slices"
	"time"
)

// Class is the roster snapshot used to seed sessions.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"`
	Students  []string  `json:"students"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTeacher reports whether a teacher is assigned.
func (c *Class) HasTeacher() bool {
	return c.TeacherID != ""
}

// Enrolled reports whether studentID is on the roster.
func (c *Class) Enrolled(studentID string) bool {
	return slices.Contains(c.Students, studentID)
}

// SessionAttendance is one session line in a student's summary.
type SessionAttendance struct {
	SessionID   string     `json:"session_id"`
	SessionName string     `json:"session_name"`
	Date        time.Time  `json:"date"`
	IsPresent   bool       `json:"is_present"`
	MarkedAt    *time.Time `json:"marked_at,omitempty"`
	IsFinalized bool       `json:"is_finalized"`
}

// ClassAttendance aggregates a student's attendance in one class.
type ClassAttendance struct {
	ClassID              string              `json:"class_id"`
	ClassName            string              `json:"class_name"`
	TotalSessions        int                 `json:"total_sessions"`
	PresentCount         int                 `json:"present_count"`
	AttendancePercentage string              `json:"attendance_percentage"`
	Sessions             []SessionAttendance `json:"sessions"`
}

// StudentAttendanceSummary groups a student's records by class.
type StudentAttendanceSummary struct {
	StudentID string            `json:"student_id"`
	Classes   []ClassAttendance `json:"classes"`
}
