// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Memory is an in-process ledger. It backs development runs with the
// ledger disabled and gives tests call counts and failure injection. Like
// the gateway it holds one attestation per (session, student) account.
type Memory struct {
	mu       sync.Mutex
	records  map[string]*Record
	accounts map[string]string // account -> handle
	seq      uint64
	now      func() time.Time

	// SubmitHook, when set, runs before a submit is accepted. A non-nil
	// error fails the call without storing anything.
	SubmitHook func(Submission) error

	// FinalizeHook, when set, runs before a finalize is accepted.
	FinalizeHook func(handle string) error

	submits   atomic.Int64
	finalizes atomic.Int64
	fetches   atomic.Int64
}

// NewMemory returns an empty in-process ledger.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string]*Record),
		accounts: make(map[string]string),
		now:      time.Now,
	}
}

func memoryAccount(sessionID, studentID string) string {
	return "mem-" + sessionID + "-" + studentID
}

// SetClock overrides the timestamp source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Memory) Submit(ctx context.Context, sub Submission) (string, error) {
	m.submits.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.SubmitHook != nil {
		if err := m.SubmitHook(sub); err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	account := memoryAccount(sub.SessionID, sub.StudentID)
	if existing, ok := m.accounts[account]; ok {
		return "", fmt.Errorf("submit %s: %w (held by %s)", account, ErrDuplicate, existing)
	}
	m.seq++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", sub.SessionID, sub.StudentID, m.seq)))
	handle := hex.EncodeToString(sum[:16])
	m.accounts[account] = handle
	m.records[handle] = &Record{
		Handle:    handle,
		Account:   account,
		SessionID: sub.SessionID,
		StudentID: sub.StudentID,
		IsPresent: sub.IsPresent,
		MarkedAt:  sub.MarkedAt,
	}
	return handle, nil
}

func (m *Memory) Finalize(ctx context.Context, handle string) (*Confirmation, error) {
	m.finalizes.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FinalizeHook != nil {
		if err := m.FinalizeHook(handle); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[handle]
	if !ok {
		return nil, fmt.Errorf("finalize %s: %w", handle, ErrNotFound)
	}
	if rec.IsFinalized {
		return nil, fmt.Errorf("finalize %s: %w", handle, ErrAlreadyFinalized)
	}
	now := m.now().UTC()
	sum := sha256.Sum256([]byte("final/" + handle))
	rec.IsFinalized = true
	rec.Signature = hex.EncodeToString(sum[:])
	rec.FinalizedAt = &now
	return &Confirmation{Handle: handle, Signature: rec.Signature, FinalizedAt: now}, nil
}

func (m *Memory) Fetch(ctx context.Context, handle string) (*Record, error) {
	m.fetches.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[handle]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", handle, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) FetchByAccount(ctx context.Context, sessionID, studentID string) (*Record, error) {
	m.fetches.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account := memoryAccount(sessionID, studentID)
	handle, ok := m.accounts[account]
	if !ok {
		return nil, fmt.Errorf("fetch account %s: %w", account, ErrNotFound)
	}
	cp := *m.records[handle]
	return &cp, nil
}

func (m *Memory) Balance(ctx context.Context) (*Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Balance{Account: "memory", Amount: 0}, nil
}

// Submits returns how many Submit calls were made.
func (m *Memory) Submits() int64 { return m.submits.Load() }

// Finalizes returns how many Finalize calls were made.
func (m *Memory) Finalizes() int64 { return m.finalizes.Load() }

// Fetches returns how many Fetch calls were made.
func (m *Memory) Fetches() int64 { return m.fetches.Load() }

// Seed stores a submitted, unfinalized record under a known handle so tests
// can model a broadcast that happened in an earlier run.
func (m *Memory) Seed(handle string, sub Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := memoryAccount(sub.SessionID, sub.StudentID)
	m.accounts[account] = handle
	m.records[handle] = &Record{
		Handle:    handle,
		Account:   account,
		SessionID: sub.SessionID,
		StudentID: sub.StudentID,
		IsPresent: sub.IsPresent,
		MarkedAt:  sub.MarkedAt,
	}
}
