// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. The HTTP layer maps kinds to status
// codes; the reconciliation engine reports them per student.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindForbidden
	KindNotFound
	KindConflict
	KindAlreadyMarked
	KindAlreadyFinalized
	KindInvalidState
	KindLedgerSubmitFailed
	KindLedgerFinalizeFailed
	KindLedgerNotFound
	KindInfrastructure
	KindRecordNotFound
	KindNotPresent
	KindLedgerUnavailable
)

var kindNames = map[Kind]string{
	KindUnknown:              "Unknown",
	KindValidation:           "Validation",
	KindForbidden:            "Forbidden",
	KindNotFound:             "NotFound",
	KindConflict:             "Conflict",
	KindAlreadyMarked:        "AlreadyMarked",
	KindAlreadyFinalized:     "AlreadyFinalized",
	KindInvalidState:         "InvalidState",
	KindLedgerSubmitFailed:   "LedgerSubmitFailed",
	KindLedgerFinalizeFailed: "LedgerFinalizeFailed",
	KindLedgerNotFound:       "LedgerNotFound",
	KindInfrastructure:       "Infrastructure",
	KindRecordNotFound:       "RecordNotFound",
	KindNotPresent:           "NotPresent",
	KindLedgerUnavailable:    "LedgerUnavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrAlreadyMarked        = &Error{Kind: KindAlreadyMarked}
	ErrAlreadyFinalized     = &Error{Kind: KindAlreadyFinalized}
	ErrInvalidState         = &Error{Kind: KindInvalidState}
	ErrLedgerSubmitFailed   = &Error{Kind: KindLedgerSubmitFailed}
	ErrLedgerFinalizeFailed = &Error{Kind: KindLedgerFinalizeFailed}
	ErrLedgerNotFound       = &Error{Kind: KindLedgerNotFound}
	ErrInfrastructure       = &Error{Kind: KindInfrastructure}
	ErrRecordNotFound       = &Error{Kind: KindRecordNotFound}
	ErrNotPresent           = &Error{Kind: KindNotPresent}
	ErrLedgerUnavailable    = &Error{Kind: KindLedgerUnavailable}
)

// Error is the single typed error of the attendance domain.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found failure regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

func errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}
