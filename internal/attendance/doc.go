// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

/*
Package attendance is the domain core: the session lifecycle, attendance
marking and the reconciliation engine that mirrors records onto the ledger.

# Sessions

StartSession creates a session for a class with a teacher and seeds one
unmarked record per roster student. Overlap with another session of the
class is rejected with KindConflict using half-open windows, so touching
sessions are allowed. SelectOrStartSession is begin-or-resume and
EndSession marks the session completed.

# Reconciliation

FinalizeAttendance processes students concurrently, bounded by
Config.Concurrency. For each student:

 1. the record is loaded (KindRecordNotFound)
 2. finalized records are skipped (KindAlreadyFinalized)
 3. absent students are skipped (KindNotPresent)
 4. an unbroadcast record is submitted and its handle persisted before
    anything else happens (KindLedgerSubmitFailed)
 5. the handle is finalized and the signature persisted
    (KindLedgerFinalizeFailed)

A failure at step 5 leaves the record broadcast, so the next batch resumes
at finalize without submitting again. Every ledger call is bounded by
Config.CallTimeout and logged to the attestation log.

# Errors

Every failure is an *Error carrying a Kind. errors.Is matches the Err*
sentinels by kind.
*/
package attendance
