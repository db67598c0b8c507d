// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package auth authenticates HS256 bearer tokens and tracks their revocation.

Tokens carry sub, role, email and jti claims and are issued by the
external identity service; JWTManager.GenerateToken signs equivalent
tokens for development and tests.

Logout revokes the presented jti. Revocations live in a RevocationStore
for the token's remaining lifetime:

  - BadgerRevocationStore shares the document store's BadgerDB and stores
    each entry with a TTL, so instances sharing a data directory agree.
  - MemoryRevocationStore is used by tests.

Authenticate fails closed when the revocation store cannot be reached.
*/
package auth
