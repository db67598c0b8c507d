// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
)

// ErrRevocationStoreClosed is returned after Close.
var ErrRevocationStoreClosed = errors.New("revocation store is closed")

// RevocationEntry records one revoked token id.
type RevocationEntry struct {
	JTI       string    `json:"jti"`
	Subject   string    `json:"sub"`
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RevocationStore remembers revoked jtis until the token would have
// expired anyway.
type RevocationStore interface {
	// Revoke stores the entry. Revoking an already revoked or already
	// expired jti is not an error.
	Revoke(ctx context.Context, entry *RevocationEntry) error

	// IsRevoked reports whether jti is revoked and not yet expired.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// CleanupExpired drops expired entries and returns how many.
	CleanupExpired(ctx context.Context) (int, error)

	// Size returns the number of stored entries.
	Size(ctx context.Context) (int, error)

	Close() error
}

// RevokeClaims revokes the token described by claims for its remaining
// lifetime.
func RevokeClaims(ctx context.Context, store RevocationStore, claims *Claims) error {
	return store.Revoke(ctx, &RevocationEntry{
		JTI:       claims.ID,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAtTime(),
	})
}

// MemoryRevocationStore keeps revocations in a map. Used in tests and
// single-instance development runs.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]*RevocationEntry
	closed  bool
	now     func() time.Time
}

// NewMemoryRevocationStore creates an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]*RevocationEntry),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Revoke(ctx context.Context, entry *RevocationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrRevocationStoreClosed
	}
	now := s.now()
	if !entry.ExpiresAt.After(now) {
		return nil
	}
	if _, ok := s.entries[entry.JTI]; ok {
		return nil
	}

	cp := *entry
	cp.RevokedAt = now
	s.entries[entry.JTI] = &cp
	metrics.RevokedTokens.Set(float64(len(s.entries)))

	logging.Ctx(ctx).Info().
		Str("jti", entry.JTI).
		Str("subject", entry.Subject).
		Time("expires_at", entry.ExpiresAt).
		Msg("Token revoked")
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrRevocationStoreClosed
	}
	entry, ok := s.entries[jti]
	if !ok {
		return false, nil
	}
	return s.now().Before(entry.ExpiresAt), nil
}

func (s *MemoryRevocationStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrRevocationStoreClosed
	}
	count := 0
	now := s.now()
	for jti, entry := range s.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(s.entries, jti)
			count++
		}
	}
	metrics.RevokedTokens.Set(float64(len(s.entries)))
	return count, nil
}

func (s *MemoryRevocationStore) Size(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrRevocationStoreClosed
	}
	return len(s.entries), nil
}

func (s *MemoryRevocationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}

// DefaultRevocationPrefix namespaces revocations inside a shared BadgerDB.
const DefaultRevocationPrefix = "revoked_jti/"

// BadgerRevocationStore persists revocations in BadgerDB with a TTL equal
// to the token's remaining lifetime. Instances sharing a data directory
// share revocations.
type BadgerRevocationStore struct {
	db     *badger.DB
	prefix []byte
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewBadgerRevocationStore wraps a BadgerDB owned by the caller. Close does
// not close db.
func NewBadgerRevocationStore(db *badger.DB, prefix string) *BadgerRevocationStore {
	if prefix == "" {
		prefix = DefaultRevocationPrefix
	}
	return &BadgerRevocationStore{
		db:     db,
		prefix: []byte(prefix),
		now:    time.Now,
	}
}

func (s *BadgerRevocationStore) makeKey(jti string) []byte {
	key := make([]byte, 0, len(s.prefix)+len(jti))
	key = append(key, s.prefix...)
	return append(key, jti...)
}

func (s *BadgerRevocationStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrRevocationStoreClosed
	}
	return nil
}

func (s *BadgerRevocationStore) Revoke(ctx context.Context, entry *RevocationEntry) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	now := s.now()
	ttl := entry.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}

	cp := *entry
	cp.RevokedAt = now
	data, err := json.Marshal(&cp)
	if err != nil {
		return err
	}

	key := s.makeKey(entry.JTI)
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl))
	})
	if err != nil {
		return err
	}
	metrics.RevokedTokens.Inc()

	logging.Ctx(ctx).Info().
		Str("jti", entry.JTI).
		Str("subject", entry.Subject).
		Time("expires_at", entry.ExpiresAt).
		Msg("Token revoked")
	return nil
}

func (s *BadgerRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	var revoked bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var entry RevocationEntry
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return err
			}
			revoked = s.now().Before(entry.ExpiresAt)
			return nil
		})
	})
	return revoked, err
}

// CleanupExpired deletes entries whose expiry has passed. Badger drops
// them on its own once the TTL lapses; the sweep keeps Size accurate when
// the store clock and badger's disagree.
func (s *BadgerRevocationStore) CleanupExpired(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	now := s.now()
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)

		var expired [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var entry RevocationEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}
			if !now.Before(entry.ExpiresAt) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		it.Close()

		for _, key := range expired {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		count = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if size, err := s.Size(ctx); err == nil {
		metrics.RevokedTokens.Set(float64(size))
	}
	return count, nil
}

func (s *BadgerRevocationStore) Size(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *BadgerRevocationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
