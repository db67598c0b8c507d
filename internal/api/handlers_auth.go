// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"net/http"

	"github.com/tomtom215/rollcall/internal/auth"
	"github.com/tomtom215/rollcall/internal/logging"
)

// Logout handles POST /api/v1/auth/logout by revoking the presented
// token's jti for the rest of its lifetime.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		auth.WriteError(ctx, w, http.StatusUnauthorized, auth.CodeUnauthorized, "authentication required")
		return
	}
	if h.revocations == nil {
		respondError(ctx, w, http.StatusServiceUnavailable, CodeUnavailable, "token revocation is not configured", nil)
		return
	}

	if err := auth.RevokeClaims(ctx, h.revocations, claims); err != nil {
		respondError(ctx, w, http.StatusInternalServerError, CodeInternal, "failed to revoke token", err)
		return
	}

	logging.Ctx(ctx).Info().Str("subject", claims.Subject).Msg("Token revoked on logout")
	respondData(ctx, w, http.StatusOK, map[string]interface{}{"revoked": true})
}
