// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"time"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/models"
)

// StartSessionRequest is the body of POST /api/v1/sessions.
type StartSessionRequest struct {
	ClassID   string    `json:"class_id" validate:"notblank,max=128"`
	Name      string    `json:"name" validate:"notblank,max=200"`
	Date      time.Time `json:"date"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

func (r *StartSessionRequest) input() attendance.StartSessionInput {
	date := r.Date
	if date.IsZero() {
		date = r.StartTime
	}
	return attendance.StartSessionInput{
		ClassID:   r.ClassID,
		Name:      r.Name,
		Date:      date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

// MarkAttendanceRequest is the body of the teacher override endpoint.
// Present is a pointer so an omitted field fails validation instead of
// reading as absent.
type MarkAttendanceRequest struct {
	Present *bool `json:"present" validate:"required"`
}

// FinalizeRequest is the body of POST /api/v1/sessions/{id}/finalize.
type FinalizeRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,max=500,dive,notblank,max=128"`
}

// PutClassRequest is the body of PUT /api/v1/classes/{id}.
type PutClassRequest struct {
	Name      string   `json:"name" validate:"notblank,max=200"`
	TeacherID string   `json:"teacher_id" validate:"omitempty,max=128"`
	Students  []string `json:"students" validate:"max=1000,dive,notblank,max=128"`
}

func (r *PutClassRequest) class(id string) *models.Class {
	return &models.Class{
		ID:        id,
		Name:      r.Name,
		TeacherID: r.TeacherID,
		Students:  r.Students,
	}
}
