// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/rollcall/internal/models"
)

const readinessTimeout = 2 * time.Second

// HealthLive handles GET /api/v1/health/live. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(r.Context(), w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready: 200 when the document
// store answers a ping, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	storeReady := h.store != nil && h.store.Ping(ctx) == nil

	status := http.StatusOK
	body := "ready"
	if !storeReady {
		status = http.StatusServiceUnavailable
		body = "not_ready"
	}
	respondJSON(r.Context(), w, status, &models.APIResponse{
		Status: body,
		Data: map[string]interface{}{
			"store_connected": storeReady,
			"ready_to_serve":  storeReady,
			"uptime":          time.Since(h.startTime).Seconds(),
		},
	})
}
