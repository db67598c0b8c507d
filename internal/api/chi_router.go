// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/authz"
	"github.com/tomtom215/rollcall/internal/middleware"
)

// Router wires handlers, authentication and authorization into chi.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	enforcer      *authz.Enforcer
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, authn *auth.Middleware, enforcer *authz.Enforcer, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, authn: authn, enforcer: enforcer, chiMiddleware: chiMW}
}

// SetupChi builds the HTTP handler tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler
	can := router.enforcer.Authorize

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(r.Context(), w, http.StatusNotFound, CodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(r.Context(), w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAuth())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authn.Authenticate)
		r.Post("/logout", h.Logout)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authn.Authenticate)

		r.With(can(authz.ObjectSessions, authz.ActionCreate)).Post("/sessions", h.StartSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.With(can(authz.ObjectSessions, authz.ActionRead)).Get("/", h.GetSession)
			r.With(can(authz.ObjectSessions, authz.ActionStart)).Post("/select", h.SelectOrStartSession)
			r.With(can(authz.ObjectSessions, authz.ActionEnd)).Post("/end", h.EndSession)
			r.With(can(authz.ObjectSessions, authz.ActionWatch)).Get("/live", h.SessionLive)
			r.With(can(authz.ObjectAttendance, authz.ActionMark)).Post("/mark", h.MarkPresence)
			r.With(can(authz.ObjectAttendance, authz.ActionOverride)).Put("/attendance/{studentId}", h.MarkByTeacher)
			r.With(can(authz.ObjectAttendance, authz.ActionFinalize)).Post("/finalize", h.FinalizeAttendance)
			r.With(can(authz.ObjectLedger, authz.ActionRead)).Get("/ledger-log", h.LedgerLog)
		})

		r.Route("/classes/{id}", func(r chi.Router) {
			r.With(can(authz.ObjectClasses, authz.ActionWrite)).Put("/", h.PutClass)
			r.With(can(authz.ObjectClasses, authz.ActionRead)).Get("/", h.GetClass)
			r.With(can(authz.ObjectSessions, authz.ActionRead)).Get("/sessions", h.ClassSessions)
		})
		r.With(can(authz.ObjectClasses, authz.ActionRead)).Get("/teachers/me/classes", h.MyClasses)

		r.With(can(authz.ObjectStudents, authz.ActionRead)).Get("/students/{id}/attendance", h.StudentAttendance)

		r.With(can(authz.ObjectLedger, authz.ActionRead)).Get("/ledger/records/{handle}", h.LedgerRecord)
		r.With(can(authz.ObjectLedger, authz.ActionBalance)).Get("/ledger/balance", h.LedgerBalance)
	})

	return r
}
