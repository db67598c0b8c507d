// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Topic carries every domain event. JetStream stream names may not contain
// dots, so the type travels in metadata rather than the subject.
const Topic = "rollcall-attendance"

// Metadata keys set on every message.
const (
	MetaType      = "event_type"
	MetaSessionID = "session_id"
)

// Type names a domain event.
type Type string

const (
	SessionStarted      Type = "session.started"
	SessionEnded        Type = "session.ended"
	AttendanceMarked    Type = "attendance.marked"
	AttendanceFinalized Type = "attendance.finalized"
)

// Event is a domain event published after a state change commits.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	SessionID  string          `json:"session_id"`
	ClassID    string          `json:"class_id,omitempty"`
	StudentID  string          `json:"student_id,omitempty"`
	Actor      string          `json:"actor,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// New builds an event with a fresh id. data is JSON encoded when non-nil.
func New(t Type, sessionID string, data interface{}) (*Event, error) {
	e := &Event{
		ID:         uuid.New().String(),
		Type:       t,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s data: %w", t, err)
		}
		e.Data = raw
	}
	return e, nil
}

// ToMessage encodes the event as a watermill message keyed by the event id,
// which JetStream uses for deduplication.
func (e *Event) ToMessage() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set(MetaType, string(e.Type))
	msg.Metadata.Set(MetaSessionID, e.SessionID)
	return msg, nil
}

// FromMessage decodes a message produced by ToMessage.
func FromMessage(msg *message.Message) (*Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return &e, nil
}
