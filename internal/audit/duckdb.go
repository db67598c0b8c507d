// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver

	"github.com/tomtom215/rollcall/internal/logging"
)

const schema = `
	CREATE TABLE IF NOT EXISTS ledger_attestations (
		id VARCHAR PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		session_id VARCHAR NOT NULL,
		student_id VARCHAR NOT NULL,
		operation VARCHAR NOT NULL,
		outcome VARCHAR NOT NULL,
		handle VARCHAR,
		signature VARCHAR,
		error VARCHAR,
		actor VARCHAR,
		request_id VARCHAR,
		correlation_id VARCHAR
	);
	CREATE INDEX IF NOT EXISTS idx_attest_session ON ledger_attestations(session_id);
	CREATE INDEX IF NOT EXISTS idx_attest_student ON ledger_attestations(student_id);
	CREATE INDEX IF NOT EXISTS idx_attest_timestamp ON ledger_attestations(timestamp DESC)
`

// DuckDBLog persists the attestation log in a DuckDB table. Writes are
// serialized; DuckDB allows a single writer per database file.
type DuckDBLog struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenDuckDB opens the database file (":memory:" for tests) and creates the
// table if needed.
func OpenDuckDB(ctx context.Context, path string) (*DuckDBLog, error) {
	if path == "" {
		return nil, errors.New("audit database path is required")
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open DuckDB: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping DuckDB: %w", err)
	}

	l := NewDuckDBLog(db)
	if err := l.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// NewDuckDBLog wraps an open database. The caller must call CreateTable.
func NewDuckDBLog(db *sql.DB) *DuckDBLog {
	return &DuckDBLog{db: db}
}

// CreateTable creates the table and indexes.
func (l *DuckDBLog) CreateTable(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	logging.Info().Msg("Ledger attestation table created/verified")
	return nil
}

// Append inserts one entry.
func (l *DuckDBLog) Append(ctx context.Context, e *Entry) error {
	if e == nil {
		return errors.New("entry cannot be nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO ledger_attestations (
			id, timestamp, session_id, student_id, operation, outcome,
			handle, signature, error, actor, request_id, correlation_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC(), e.SessionID, e.StudentID, string(e.Operation), string(e.Outcome),
		nullable(e.Handle), nullable(e.Signature), nullable(e.Error),
		nullable(e.Actor), nullable(e.RequestID), nullable(e.CorrelationID),
	)
	if err != nil {
		return fmt.Errorf("failed to save attestation entry: %w", err)
	}
	return nil
}

// ListBySession returns the session's entries, newest first.
func (l *DuckDBLog) ListBySession(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, session_id, student_id, operation, outcome,
			handle, signature, error, actor, request_id, correlation_id
		FROM ledger_attestations
		WHERE session_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attestation entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var op, outcome string
		var handle, sig, errMsg, actor, reqID, corrID sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.SessionID, &e.StudentID, &op, &outcome,
			&handle, &sig, &errMsg, &actor, &reqID, &corrID); err != nil {
			logging.Warn().Err(err).Msg("Failed to scan attestation row")
			continue
		}
		e.Operation = Operation(op)
		e.Outcome = Outcome(outcome)
		e.Handle = handle.String
		e.Signature = sig.String
		e.Error = errMsg.String
		e.Actor = actor.String
		e.RequestID = reqID.String
		e.CorrelationID = corrID.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attestation entries: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (l *DuckDBLog) Close() error {
	return l.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
