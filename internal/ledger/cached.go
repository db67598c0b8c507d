// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package ledger

import (
	"context"
	"time"

	"github.com/tomtom215/rollcall/internal/cache"
	"github.com/tomtom215/rollcall/internal/metrics"
)

// CachedClient serves Fetch for finalized records from an LRU cache.
// A finalized record never changes on the ledger, so only those are
// cached; pending records always go to next.
type CachedClient struct {
	next    Client
	records *cache.LRU[string, Record]
}

// NewCachedClient wraps next with a cache of capacity finalized records.
func NewCachedClient(next Client, capacity int, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, records: cache.NewLRU[string, Record](capacity, ttl)}
}

func (c *CachedClient) Submit(ctx context.Context, sub Submission) (string, error) {
	return c.next.Submit(ctx, sub)
}

func (c *CachedClient) Finalize(ctx context.Context, handle string) (*Confirmation, error) {
	return c.next.Finalize(ctx, handle)
}

func (c *CachedClient) Fetch(ctx context.Context, handle string) (*Record, error) {
	if rec, ok := c.records.Get(handle); ok {
		metrics.LedgerRecordCache.WithLabelValues("hit").Inc()
		return &rec, nil
	}
	metrics.LedgerRecordCache.WithLabelValues("miss").Inc()

	rec, err := c.next.Fetch(ctx, handle)
	if err != nil {
		return nil, err
	}
	if rec.IsFinalized {
		c.records.Add(handle, *rec)
	}
	return rec, nil
}

// FetchByAccount always asks next, since an empty account may fill later.
// A finalized answer still warms the handle cache.
func (c *CachedClient) FetchByAccount(ctx context.Context, sessionID, studentID string) (*Record, error) {
	rec, err := c.next.FetchByAccount(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if rec.IsFinalized && rec.Handle != "" {
		c.records.Add(rec.Handle, *rec)
	}
	return rec, nil
}

func (c *CachedClient) Balance(ctx context.Context) (*Balance, error) {
	return c.next.Balance(ctx)
}

// PurgeExpired drops expired records. Returns how many were removed.
func (c *CachedClient) PurgeExpired(context.Context) (int, error) {
	return c.records.CleanupExpired(), nil
}
