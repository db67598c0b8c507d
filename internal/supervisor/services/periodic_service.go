// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package services

import (
	"context"
	"time"

	"github.com/tomtom215/rollcall/internal/logging"
)

// PeriodicService runs a maintenance task on a fixed interval.
//
// A failed run is logged and retried on the next tick; it does not return
// from Serve, so a transient store error never triggers supervisor backoff.
type PeriodicService struct {
	name     string
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewPeriodicService creates a periodic task. A non-positive interval
// defaults to one hour.
func NewPeriodicService(name string, interval time.Duration, task func(ctx context.Context) error) *PeriodicService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &PeriodicService{name: name, interval: interval, task: task}
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log := logging.WithComponent(p.name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := p.task(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Msg("Periodic task failed")
				continue
			}
			log.Debug().Dur("duration", time.Since(start)).Msg("Periodic task finished")
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (p *PeriodicService) String() string {
	return p.name
}

// RevocationCleaner matches auth.RevocationStore's cleanup method.
type RevocationCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// NewRevocationCleanupService purges revocation entries whose tokens have
// expired on their own.
func NewRevocationCleanupService(store RevocationCleaner, interval time.Duration) *PeriodicService {
	return NewPeriodicService("revocation-cleanup", interval, func(ctx context.Context) error {
		removed, err := store.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			logging.Info().Int("removed", removed).Msg("Expired token revocations purged")
		}
		return nil
	})
}

// GarbageCollector matches store.Store's value log GC.
type GarbageCollector interface {
	RunGC(ctx context.Context) error
}

// NewStoreGCService reclaims value log space on an interval.
func NewStoreGCService(store GarbageCollector, interval time.Duration) *PeriodicService {
	return NewPeriodicService("store-gc", interval, store.RunGC)
}
