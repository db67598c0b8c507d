// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package store is the embedded BadgerDB document store behind classes,
sessions and attendance records.

Documents are JSON (goccy/go-json) under typed key prefixes with empty
index keys for the secondary lookups (teacher to classes, class to
sessions, student to records). See keys.go for the layout.

# Concurrency

Every mutation is an optimistic badger transaction that is retried on
badger.ErrConflict. Mutation callbacks therefore run once per attempt and
must only touch the document they are handed.

Two guarantees follow:

  - UpsertRecord is first-writer-wins: the loser of an insert race re-reads
    the committed record and applies its mutation as an update.
  - CreateSessionWithRecords checks for overlapping sessions inside the
    insert transaction and writes a per-class guard key, so concurrent
    overlapping creates cannot both commit.

# Lifetime

The store owns the *badger.DB. DB() exposes it so the token revocation
store can share the data directory. RunGC is driven by a supervisor ticker.
*/
package store
