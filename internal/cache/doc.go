// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package cache provides a thread-safe LRU cache with per-entry TTL.
//
// Lookups, inserts and evictions are O(1): a map indexes the nodes of a
// doubly linked list ordered from most to least recently used. Expired
// entries are dropped lazily on access or in bulk by CleanupExpired.
package cache
