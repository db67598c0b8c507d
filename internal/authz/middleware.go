// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package authz

import (
	"net/http"

	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
)

// API error codes written by Authorize.
const (
	CodeForbidden = "FORBIDDEN"
	CodeInternal  = "INTERNAL_ERROR"
)

// Authorize returns chi-compatible middleware that admits the request only
// when the authenticated principal's role may perform action on object.
// It must run after auth.Middleware.Authenticate.
func (e *Enforcer) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, ok := auth.PrincipalFromContext(ctx)
			if !ok {
				auth.WriteError(ctx, w, http.StatusUnauthorized, auth.CodeUnauthorized, "authentication required")
				return
			}

			allowed, err := e.Enforce(principal.Role, object, action)
			if err != nil {
				logging.Ctx(ctx).Error().Err(err).
					Str("object", object).
					Str("action", action).
					Msg("Authorization check failed")
				auth.WriteError(ctx, w, http.StatusInternalServerError, CodeInternal, "authorization check failed")
				return
			}
			if !allowed {
				metrics.AuthzDenials.WithLabelValues(principal.Role.String(), object, action).Inc()
				logging.Ctx(ctx).Debug().
					Str("principal", principal.ID).
					Stringer("role", principal.Role).
					Str("object", object).
					Str("action", action).
					Msg("Request denied by policy")
				auth.WriteError(ctx, w, http.StatusForbidden, CodeForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
