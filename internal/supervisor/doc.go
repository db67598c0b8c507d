// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package supervisor runs Rollcall's long-lived services under suture v4.

# Tree

	RootSupervisor ("rollcall")
	├── DataSupervisor ("data-layer")
	│   ├── store-gc            (PeriodicService, Badger value log GC)
	│   ├── revocation-cleanup  (PeriodicService, expired token revocations)
	│   └── ledger-cache-purge  (PeriodicService, when the ledger gateway is used)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub       (WebSocketHubService)
	│   ├── event-forwarder     (websocket.Forwarder, bus to hub)
	│   └── nats-server         (NATSServerService, when embedded)
	└── APISupervisor ("api-layer")
	    └── http-server         (HTTPServerService)

Each layer counts failures independently, so a restarting forwarder does
not interrupt the HTTP server.

# Logging

Supervisor events (service failures, restarts, backoff) go through
sutureslog to the slog logger bridged onto zerolog by logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFromServer(&cfg.Server))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
