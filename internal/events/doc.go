// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package events carries domain events between the attendance core and the
live websocket feed.

Events:

  - session.started
  - session.ended
  - attendance.marked
  - attendance.finalized

All events go to a single topic with the type in message metadata.

# Transports

NewGoChannelBus is the default in-process bus (watermill gochannel).
NewNATSBus uses watermill-nats over JetStream when events.nats_url is set.
StartEmbeddedServer runs nats-server in-process when
events.embedded_server is set, and its ClientURL feeds NewNATSBus.

Events are published after the state change commits. A failed publish is
logged by Emit and never fails the originating request.
*/
package events
