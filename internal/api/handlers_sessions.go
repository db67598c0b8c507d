// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"
)

// StartSession handles POST /api/v1/sessions.
// Responds 201 with the session; 409 when it overlaps another session of the class.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, err := h.svc.StartSession(r.Context(), req.input(), p)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusCreated, sess)
}

// SelectOrStartSession handles POST /api/v1/sessions/{id}/select.
// It is safe to call on every page load.
func (h *Handler) SelectOrStartSession(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	view, err := h.svc.SelectOrStartSession(r.Context(), urlParam(r, "id"), p)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, view)
}

// EndSession handles POST /api/v1/sessions/{id}/end.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.EndSession(r.Context(), urlParam(r, "id"), p)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, sess)
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), urlParam(r, "id"))
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, sess)
}

// ClassSessions handles GET /api/v1/classes/{id}/sessions.
func (h *Handler) ClassSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListClassSessions(r.Context(), urlParam(r, "id"))
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondList(r.Context(), w, sessions, len(sessions))
}
