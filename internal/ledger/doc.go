// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package ledger is the client side of the append-only attestation ledger.

The ledger is a black box with three record operations:

  - Submit writes an attendance fact and returns an opaque handle
  - Finalize seals the record behind a handle
  - Fetch reads it back, failing with ErrNotFound for unknown handles

Balance reports the fee payer's funds for the admin health view.

# Implementations

HTTPClient speaks JSON to the ledger gateway. Requests are signed with an
ed25519 fee-payer key; submissions also carry a signature by the record's
account key. Both keys come from KeyDeriver, which runs HKDF-SHA256 over the
configured master seed so that a resubmission for the same (session,
student) pair addresses the same account. Fee-bearing calls are paced with
golang.org/x/time/rate.

BreakerClient wraps any Client with sony/gobreaker. While open it fails
fast with ErrCircuitOpen.

Memory is an in-process ledger for development and tests.

No implementation retries. Retrying is the reconciliation engine's job and
happens at the granularity of a whole record.
*/
package ledger
