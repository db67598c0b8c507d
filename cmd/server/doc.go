// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package main is the entry point for the Rollcall server.

Rollcall records class attendance under three roles (admin, teacher,
student) and attests finalized records on an external ledger. Teachers
start sessions and finalize attendance; students mark themselves present
while a session is open; every ledger call is written to an append-only
attestation log.

# Application Architecture

	RootSupervisor ("rollcall")
	├── DataSupervisor ("data-layer")
	│   ├── store-gc
	│   ├── revocation-cleanup
	│   └── ledger-cache-purge (ledger.enabled)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub
	│   ├── event-forwarder
	│   └── nats-server (events.embedded_server)
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Configuration: koanf v2 (defaults, YAML file, environment)
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Store: BadgerDB documents for classes, sessions and records
 4. Ledger: signed HTTP gateway behind a circuit breaker, or an in-memory
    ledger when ledger.enabled is false; finalized records are cached
 5. Attestation log: DuckDB, or in memory when audit.enabled is false
 6. Events: watermill over NATS JetStream or an in-process channel
 7. Auth: HS256 JWT validation, BadgerDB token revocations, casbin policy
 8. HTTP: chi router with the attendance API and /metrics

# Configuration

Common environment variables:

	HTTP_PORT           listen port (default 8080)
	JWT_SECRET          HS256 signing secret, 32+ characters
	STORE_PATH          BadgerDB directory
	LEDGER_ENABLED      attest on the ledger gateway
	LEDGER_URL          gateway base URL
	LEDGER_MASTER_SEED  seed for per-record key derivation
	AUDIT_PATH          DuckDB attestation log file
	NATS_URL            external NATS server; empty uses the in-process bus
	NATS_EMBEDDED       run a JetStream server in-process
	CONFIG_PATH         optional YAML file

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server gets
server.shutdown_timeout to drain, then the event bus and stores close.
*/
package main
