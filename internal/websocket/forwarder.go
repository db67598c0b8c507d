// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package websocket

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/logging"
)

// EventSource yields domain event messages. *events.Bus satisfies it.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// Forwarder relays bus events to the hub. It is a suture service.
type Forwarder struct {
	source EventSource
	hub    *Hub
}

// NewForwarder creates a forwarder from source to hub.
func NewForwarder(source EventSource, hub *Hub) *Forwarder {
	return &Forwarder{source: source, hub: hub}
}

// Serve subscribes and forwards until ctx is done. A closed subscription
// is returned as an error so the supervisor restarts the forwarder.
func (f *Forwarder) Serve(ctx context.Context) error {
	messages, err := f.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	logging.Info().Str("component", "event-forwarder").Msg("Forwarding events to websocket clients")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("event subscription closed")
			}
			f.handle(msg)
		}
	}
}

func (f *Forwarder) handle(msg *message.Message) {
	e, err := events.FromMessage(msg)
	if err != nil {
		// Undecodable messages are acked so they are not redelivered forever.
		logging.Warn().Err(err).Msg("Dropping undecodable event")
		msg.Ack()
		return
	}
	f.hub.Publish(e)
	msg.Ack()
}

func (f *Forwarder) String() string {
	return "event-forwarder"
}
