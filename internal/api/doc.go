// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package api exposes the attendance service over HTTP using chi.

Every route under /api/v1 except health requires a bearer token
(auth.Middleware) and a policy grant (authz.Enforcer). Handlers decode and
validate the body, call attendance.Service, and write the APIResponse
envelope. Service error kinds map to statuses:

	Validation                                  400 VALIDATION_ERROR
	Forbidden                                   403 FORBIDDEN
	NotFound, RecordNotFound, LedgerNotFound    404 NOT_FOUND
	Conflict                                    409 CONFLICT
	AlreadyMarked                               409 ALREADY_MARKED
	AlreadyFinalized                            409 ALREADY_FINALIZED
	InvalidState, NotPresent                    409 INVALID_STATE
	Ledger submit/finalize/unavailable          502 LEDGER_ERROR
	Infrastructure                              500 INTERNAL_ERROR

POST /api/v1/sessions/{id}/finalize answers 200 even when some students
fail; the failures are listed in failed_records.
*/
package api
