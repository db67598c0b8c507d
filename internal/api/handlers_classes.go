// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"
)

// PutClass handles PUT /api/v1/classes/{id}. It seeds the roster that
// future sessions copy; existing sessions keep their records.
func (h *Handler) PutClass(w http.ResponseWriter, r *http.Request) {
	var req PutClassRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	class, err := h.svc.PutClass(r.Context(), req.class(urlParam(r, "id")))
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, class)
}

// GetClass handles GET /api/v1/classes/{id}.
func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	class, err := h.svc.GetClass(r.Context(), urlParam(r, "id"))
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, class)
}

// MyClasses handles GET /api/v1/teachers/me/classes.
func (h *Handler) MyClasses(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	classes, err := h.svc.TeacherClasses(r.Context(), p.ID)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondList(r.Context(), w, classes, len(classes))
}
