// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package authz decides which roles may perform which actions, using Casbin.
//
// Requests are checked as (role, object, action):
//
//	Request -> auth.Authenticate -> Enforcer.Authorize -> Handler
//
// The model and policy are embedded (model.conf, policy.csv) and may be
// replaced by files named in the security config. Admin inherits every
// teacher permission through a grouping rule.
//
// Authorize is a coarse gate on the route. Ownership rules, such as a
// teacher only managing sessions of their own classes, are enforced by
// the attendance service.
package authz
