// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package events

import (
	"context"

	"github.com/tomtom215/rollcall/internal/logging"
)

// Publisher is the narrow interface the domain layer publishes through.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Nop discards events. Used when events are disabled.
type Nop struct{}

func (Nop) Publish(context.Context, *Event) error { return nil }

// Emit builds and publishes an event, logging instead of failing. State
// changes have already committed when events are emitted, so a bus outage
// must not surface as a request error.
func Emit(ctx context.Context, p Publisher, t Type, sessionID string, fill func(*Event), data interface{}) {
	if p == nil {
		return
	}
	e, err := New(t, sessionID, data)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event_type", string(t)).Msg("Failed to build event")
		return
	}
	if fill != nil {
		fill(e)
	}
	if err := p.Publish(ctx, e); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("event_type", string(t)).
			Str("session_id", sessionID).
			Msg("Failed to publish event")
	}
}
