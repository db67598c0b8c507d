// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/rollcall/internal/logging"
)

// slowRequestThreshold promotes access log lines to warn level.
const slowRequestThreshold = time.Second

// AccessLog writes one structured line per request. It must run after
// RequestID so the line carries request_id and correlation_id.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		elapsed := time.Since(start)
		logger := logging.Ctx(r.Context())
		event := logger.Debug()
		switch {
		case wrapper.statusCode >= http.StatusInternalServerError:
			event = logger.Error()
		case elapsed >= slowRequestThreshold:
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", logging.SanitizeValue(r.URL.Path)).
			Str("route", routePattern(r)).
			Int("status", wrapper.statusCode).
			Dur("duration", elapsed).
			Msg("http request")
	})
}
