// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/models"
	ws "github.com/tomtom215/rollcall/internal/websocket"
)

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the attendance API.
type Handler struct {
	svc         *attendance.Service
	revocations auth.RevocationStore
	hub         *ws.Hub
	store       Pinger
	corsOrigins []string
	startTime   time.Time
}

// HandlerDeps collects the Handler's collaborators. Hub may be nil, which
// disables the live endpoint.
type HandlerDeps struct {
	Service     *attendance.Service
	Revocations auth.RevocationStore
	Hub         *ws.Hub
	Store       Pinger
	CORSOrigins []string
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		svc:         deps.Service,
		revocations: deps.Revocations,
		hub:         deps.Hub,
		store:       deps.Store,
		corsOrigins: deps.CORSOrigins,
		startTime:   time.Now(),
	}
}

// principal returns the authenticated caller. Routes behind Authenticate
// always have one; the check keeps a misrouted handler from panicking.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		auth.WriteError(r.Context(), w, http.StatusUnauthorized, auth.CodeUnauthorized, "authentication required")
	}
	return p, ok
}

// intQuery parses a non-negative integer query parameter.
func intQuery(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
