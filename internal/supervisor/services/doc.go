// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package services adapts Rollcall components to suture.Service.

Each wrapper translates a component's lifecycle (ListenAndServe, a run
loop, a ticker task) into Serve(ctx) and names itself through fmt.Stringer
for suture's log events:

  - HTTPServerService: *http.Server with graceful shutdown
  - WebSocketHubService: the live session hub
  - PeriodicService: store GC and revocation cleanup on an interval
  - NATSServerService: shutdown of the embedded NATS server

The event forwarder in internal/websocket implements suture.Service itself
and needs no wrapper.

Wrappers depend on small interfaces rather than the concrete packages so
tests can drive them with mocks.
*/
package services
