// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package config loads Rollcall configuration with koanf.
//
// Sources are layered, later ones overriding earlier ones:
//
//  1. Defaults compiled into defaultConfig
//  2. A YAML file: $CONFIG_PATH, ./config.yaml, or /etc/rollcall/config.yaml
//  3. Environment variables
//
// # Environment Variables
//
//	HTTP_HOST, HTTP_PORT, ENVIRONMENT
//	JWT_SECRET (required, >= 32 chars), TOKEN_TTL, CORS_ORIGINS (comma-separated)
//	RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
//	STORE_PATH, STORE_IN_MEMORY, STORE_GC_INTERVAL
//	LEDGER_ENABLED, LEDGER_URL, LEDGER_MASTER_SEED, LEDGER_CALL_TIMEOUT,
//	LEDGER_REQUESTS_PER_SECOND, LEDGER_SUBMIT_ON_MARK
//	AUDIT_ENABLED, AUDIT_PATH
//	EVENTS_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR
//	RECONCILE_CONCURRENCY
//	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
//
// # Example YAML
//
//	server:
//	  port: 8080
//	security:
//	  jwt_secret: "change-me-to-a-long-random-secret-value"
//	ledger:
//	  enabled: true
//	  url: https://ledger-gateway.internal
//	  master_seed: "another-long-random-secret-for-keys"
//	reconcile:
//	  concurrency: 8
package config
