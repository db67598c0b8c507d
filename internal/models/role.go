// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of principal roles. The zero value is not a valid
// role, so an unset claim never authorizes anything.
//
// Switches over Role list every constant explicitly.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleTeacher
	RoleStudent
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

// ParseRole converts a role name. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "teacher":
		return RoleTeacher, nil
	case "student":
		return RoleStudent, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// String returns the canonical lower-case role name.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleTeacher:
		return "teacher"
	case RoleStudent:
		return "student"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// CanStartSessions reports whether the role may create sessions.
func (r Role) CanStartSessions() bool {
	switch r {
	case RoleAdmin, RoleTeacher:
		return true
	case RoleStudent:
		return false
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler so roles serialize by name
// in JSON bodies and token claims.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Principal is the authenticated caller attached to every request.
type Principal struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`
}

// Is reports whether the principal has role r.
func (p Principal) Is(r Role) bool {
	return p.Role == r
}
