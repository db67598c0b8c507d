// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"
)

// NATSServer matches *events.EmbeddedServer's lifecycle.
type NATSServer interface {
	Running() bool
	Shutdown(ctx context.Context) error
}

// NATSServerService owns the embedded NATS server's shutdown.
//
// The server starts before the event bus connects to it, so Serve only
// waits. A server that stopped on its own cannot be restarted in place, and
// Serve reports that with suture.ErrDoNotRestart.
type NATSServerService struct {
	server          NATSServer
	shutdownTimeout time.Duration
	name            string
}

// NewNATSServerService creates a new embedded NATS service wrapper.
func NewNATSServerService(server NATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-server",
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if !s.server.Running() {
		return fmt.Errorf("embedded NATS server is not running: %w", suture.ErrDoNotRestart)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(ctx.Err(), fmt.Errorf("embedded NATS shutdown failed: %w", err))
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (s *NATSServerService) String() string {
	return s.name
}
