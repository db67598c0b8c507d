// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/metrics"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store is closed")

	// ErrExists is returned when creating a document whose id is taken.
	ErrExists = errors.New("document already exists")

	// ErrUnchanged may be returned by an update function to skip the write.
	// The update call then returns the current document and a nil error.
	ErrUnchanged = errors.New("document unchanged")

	// ErrTooManyConflicts is returned when an optimistic transaction keeps
	// losing to concurrent writers.
	ErrTooManyConflicts = errors.New("transaction conflict retries exhausted")

	// ErrInvalidWindow is returned when an update leaves a session's start
	// time at or after its end time.
	ErrInvalidWindow = errors.New("session start must precede its end")
)

// defaultMaxRetries bounds the optimistic retry loop.
const defaultMaxRetries = 16

// gcDiscardRatio is passed to RunValueLogGC.
const gcDiscardRatio = 0.5

// Config controls how the underlying BadgerDB is opened.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests and ephemeral dev runs.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// Store is the BadgerDB-backed document store for classes, sessions and
// attendance records. Every document is JSON encoded under a typed key
// prefix and mutated with optimistic read-modify-write transactions.
type Store struct {
	db         *badger.DB
	mu         sync.RWMutex
	closed     bool
	maxRetries int
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store path is required unless in-memory")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = newBadgerLogger()

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Document store opened")

	return &Store{db: db, maxRetries: defaultMaxRetries}, nil
}

// DB exposes the underlying database so the token revocation store can
// share the same data directory.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Close flushes and closes the database. It is safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	return nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Ping reports whether the store can serve reads.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyPing)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// RunGC reclaims value log space until badger reports nothing to rewrite.
func (s *Store) RunGC(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.db.Opts().InMemory {
		return nil
	}

	start := time.Now()
	rewrites := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			metrics.RecordStoreOp("gc", time.Since(start), err)
			return fmt.Errorf("run value log GC: %w", err)
		}
		rewrites++
	}
	metrics.RecordStoreOp("gc", time.Since(start), nil)
	logging.Debug().Int("rewrites", rewrites).Dur("duration", time.Since(start)).Msg("Value log GC finished")
	return nil
}

// view runs a read-only transaction.
func (s *Store) view(ctx context.Context, op string, fn func(txn *badger.Txn) error) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOp(op, time.Since(start), ignoreNotFound(err)) }()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = s.checkOpen(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// update runs fn in a read-write transaction, retrying on badger.ErrConflict.
// fn must be safe to run more than once: the losing writer re-reads and
// applies its mutation to whatever the winner committed.
func (s *Store) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOp(op, time.Since(start), ignoreNotFound(err)) }()

	if err = s.checkOpen(); err != nil {
		return err
	}
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		metrics.StoreTxnConflicts.WithLabelValues(op).Inc()
		logging.Ctx(ctx).Debug().Str("op", op).Int("attempt", attempt+1).Msg("Transaction conflict, retrying")
	}
	return fmt.Errorf("%s: %w", op, ErrTooManyConflicts)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnchanged) {
		return nil
	}
	return err
}

// getJSON reads and decodes one document.
func getJSON(txn *badger.Txn, key []byte, dst interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dst); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	})
}

// setJSON encodes and writes one document.
func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// scanPrefix calls fn with the key suffix of every key under prefix.
// Values are not fetched.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(suffix string) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		if err := fn(string(key[len(prefix):])); err != nil {
			return err
		}
	}
	return nil
}

// scanJSON decodes every document under prefix into a fresh T.
func scanJSON[T any](txn *badger.Txn, prefix []byte) ([]*T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*T
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		doc := new(T)
		err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, doc)
		})
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
		}
		out = append(out, doc)
	}
	return out, nil
}
