// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
)

// Recorder stamps and appends entries. Append failures are logged and
// counted but never returned: losing an audit row must not fail the
// ledger operation it describes.
type Recorder struct {
	log Log
	now func() time.Time
}

// NewRecorder wraps log. A nil log yields a recorder that drops entries.
func NewRecorder(log Log) *Recorder {
	return &Recorder{log: log, now: time.Now}
}

// Record appends e after filling id, timestamp and the request ids carried
// by ctx.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.log == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now().UTC()
	}
	if e.RequestID == "" {
		e.RequestID = logging.RequestIDFromContext(ctx)
	}
	if e.CorrelationID == "" {
		e.CorrelationID = logging.CorrelationIDFromContext(ctx)
	}

	// The batch may already be past its deadline; the row still belongs in
	// the log.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := r.log.Append(writeCtx, &e); err != nil {
		metrics.AuditAppends.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("session_id", e.SessionID).
			Str("student_id", e.StudentID).
			Str("operation", string(e.Operation)).
			Msg("Failed to append ledger attestation entry")
		return
	}
	metrics.AuditAppends.WithLabelValues("success").Inc()
}

// List proxies to the underlying log.
func (r *Recorder) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if r == nil || r.log == nil {
		return nil, nil
	}
	return r.log.ListBySession(ctx, sessionID, limit)
}
