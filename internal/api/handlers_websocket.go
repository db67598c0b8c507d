// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/rollcall/internal/logging"
	ws "github.com/tomtom215/rollcall/internal/websocket"
)

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin admits only configured CORS origins. Browsers always
// send Origin, so a missing header is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().
		Str("origin", logging.SanitizeValue(origin)).
		Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// SessionLive handles GET /api/v1/sessions/{id}/live. The caller must be
// allowed to manage the session; the connection then receives that
// session's events.
func (h *Handler) SessionLive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.hub == nil {
		respondError(ctx, w, http.StatusServiceUnavailable, CodeUnavailable, "live updates are not enabled", nil)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}

	sess, err := h.svc.WatchSession(ctx, urlParam(r, "id"), p)
	if err != nil {
		respondServiceError(ctx, w, err)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(ctx).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, sess.ID)
	h.hub.Register <- client
	client.Start()
}
