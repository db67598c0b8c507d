// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package validation validates decoded request bodies with
// go-playground/validator v10.
//
// A single validator instance is shared by all handlers. Field names in
// messages are the JSON names, so a client sending {"end_time": ...} sees
// "end_time must be after start_time".
//
// # Custom Tags
//
//   - role: value parses as models.Role
//   - notblank: string is not empty after trimming whitespace
//
// # Usage
//
//	var req StartSessionRequest
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, verr)
//	    return
//	}
package validation
