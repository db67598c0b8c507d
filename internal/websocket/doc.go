// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package websocket streams live attendance changes to teachers.

A Client is bound to one session when it connects. The Hub fans each
message out only to clients of the message's session, in client id order.
The Forwarder subscribes to the domain event bus and hands every event to
the Hub, so clients see the same events whichever transport carries them.

Message format (server to client):

	{"type": "attendance.marked", "session_id": "...", "data": {...event...}}

Clients may send {"type": "ping"} and receive {"type": "pong"}.

Slow clients whose send buffer fills are dropped rather than blocking the
broadcast loop.
*/
package websocket
