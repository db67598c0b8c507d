// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
	"github.com/tomtom215/rollcall/internal/models"
)

type contextKey string

const (
	claimsContextKey    contextKey = "claims"
	principalContextKey contextKey = "principal"
)

// CodeUnauthorized is the API error code for authentication failures.
const CodeUnauthorized = "UNAUTHORIZED"

// tokenQueryParam carries the token for websocket upgrades, where browsers
// cannot set an Authorization header.
const tokenQueryParam = "access_token"

// ContextWithClaims stores validated claims and the derived principal.
func ContextWithClaims(ctx context.Context, claims *Claims, p models.Principal) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey, claims)
	return context.WithValue(ctx, principalContextKey, p)
}

// ClaimsFromContext returns the validated claims of the request.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok && c != nil
}

// PrincipalFromContext returns the authenticated principal.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(models.Principal)
	return p, ok
}

// Middleware authenticates bearer tokens.
type Middleware struct {
	jwt         *JWTManager
	revocations RevocationStore
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(jwtManager *JWTManager, revocations RevocationStore) *Middleware {
	return &Middleware{jwt: jwtManager, revocations: revocations}
}

// Authenticate rejects requests without a valid, unrevoked bearer token
// and attaches the principal to the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := extractToken(r)
		if err != nil {
			metrics.TokenValidations.WithLabelValues("invalid").Inc()
			writeUnauthorized(ctx, w, err.Error())
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			result := "invalid"
			if errors.Is(err, ErrExpiredToken) {
				result = "expired"
			}
			metrics.TokenValidations.WithLabelValues(result).Inc()
			logging.Ctx(ctx).Debug().Err(err).Msg("Token validation failed")
			writeUnauthorized(ctx, w, "invalid or expired token")
			return
		}

		if m.revocations != nil {
			revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
			if err != nil {
				// Fail closed: a token that cannot be checked is not trusted.
				metrics.TokenValidations.WithLabelValues("invalid").Inc()
				logging.Ctx(ctx).Error().Err(err).Msg("Revocation check failed")
				writeUnauthorized(ctx, w, "token could not be verified")
				return
			}
			if revoked {
				metrics.TokenValidations.WithLabelValues("revoked").Inc()
				writeUnauthorized(ctx, w, ErrRevokedToken.Error())
				return
			}
		}

		principal, err := claims.Principal()
		if err != nil {
			metrics.TokenValidations.WithLabelValues("invalid").Inc()
			writeUnauthorized(ctx, w, "invalid token claims")
			return
		}

		metrics.TokenValidations.WithLabelValues("valid").Inc()
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(ctx, claims, principal)))
	})
}

// extractToken reads the bearer token from the Authorization header, or
// from the access_token query parameter on websocket upgrades.
func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", errors.New("authorization header must be 'Bearer <token>'")
		}
		return strings.TrimSpace(token), nil
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := r.URL.Query().Get(tokenQueryParam); token != "" {
			return token, nil
		}
	}
	return "", errors.New("authentication required")
}

func writeUnauthorized(ctx context.Context, w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="rollcall"`)
	WriteError(ctx, w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// WriteError writes the standard error envelope. Middleware that runs
// before the API handlers use it so rejections look like handler errors.
func WriteError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(ctx),
		},
		Error: &models.APIError{Code: code, Message: message},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to encode error response")
	}
}
