// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"
)

// MarkPresence handles POST /api/v1/sessions/{id}/mark. The student is
// always the caller; a second mark answers 409 ALREADY_MARKED.
func (h *Handler) MarkPresence(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	record, err := h.svc.MarkPresence(r.Context(), urlParam(r, "id"), p.ID)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, record)
}

// MarkByTeacher handles PUT /api/v1/sessions/{id}/attendance/{studentId}.
func (h *Handler) MarkByTeacher(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req MarkAttendanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	record, err := h.svc.MarkByTeacher(r.Context(), urlParam(r, "id"), urlParam(r, "studentId"), *req.Present, p)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, record)
}

// FinalizeAttendance handles POST /api/v1/sessions/{id}/finalize.
//
// Per-student failures do not fail the request: the response is 200 with
// finalized_records and failed_records, and callers must inspect the latter.
func (h *Handler) FinalizeAttendance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req FinalizeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.svc.FinalizeAttendance(r.Context(), urlParam(r, "id"), req.StudentIDs, p)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, result)
}

// StudentAttendance handles GET /api/v1/students/{id}/attendance.
func (h *Handler) StudentAttendance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	summary, err := h.svc.StudentSummary(r.Context(), urlParam(r, "id"), p)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, summary)
}
