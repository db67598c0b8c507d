// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"
)

const (
	defaultLedgerLogLimit = 100
	maxLedgerLogLimit     = 1000
)

// LedgerRecord handles GET /api/v1/ledger/records/{handle}.
// 404 when the ledger has no such record, 502 when it cannot be reached.
func (h *Handler) LedgerRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.FetchLedgerRecord(r.Context(), urlParam(r, "handle"))
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, record)
}

// LedgerBalance handles GET /api/v1/ledger/balance.
func (h *Handler) LedgerBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.LedgerBalance(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondData(r.Context(), w, http.StatusOK, balance)
}

// LedgerLog handles GET /api/v1/sessions/{id}/ledger-log?limit=N.
// 403 unless the caller teaches the session or is an admin.
func (h *Handler) LedgerLog(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit, ok := intQuery(r, "limit", defaultLedgerLogLimit)
	if !ok || limit == 0 {
		respondError(r.Context(), w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer", nil)
		return
	}
	if limit > maxLedgerLogLimit {
		limit = maxLedgerLogLimit
	}

	entries, err := h.svc.LedgerLog(r.Context(), urlParam(r, "id"), limit, p)
	if err != nil {
		respondServiceError(r.Context(), w, err)
		return
	}
	respondList(r.Context(), w, entries, len(entries))
}
