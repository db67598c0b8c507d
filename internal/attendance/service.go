// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/rollcall/internal/audit"
	"github.com/tomtom215/rollcall/internal/events"
	"github.com/tomtom215/rollcall/internal/ledger"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/store"
)

// Store is the persistence the service needs. *store.Store satisfies it.
type Store interface {
	GetClass(ctx context.Context, classID string) (*models.Class, error)
	PutClass(ctx context.Context, class *models.Class) error
	ListClassesByTeacher(ctx context.Context, teacherID string) ([]*models.Class, error)

	CreateSessionWithRecords(ctx context.Context, sess *models.Session, records []*models.AttendanceRecord) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	UpdateSession(ctx context.Context, sessionID string, fn func(*models.Session) error) (*models.Session, error)
	ListSessionsByClass(ctx context.Context, classID string) ([]*models.Session, error)

	GetRecord(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error)
	UpsertRecord(ctx context.Context, sessionID, studentID string, fn store.RecordMutator) (*models.AttendanceRecord, error)
	UpdateRecord(ctx context.Context, sessionID, studentID string, fn store.RecordMutator) (*models.AttendanceRecord, error)
	ListRecordsBySession(ctx context.Context, sessionID string) (map[string]*models.AttendanceRecord, error)
	ListRecordsByStudent(ctx context.Context, studentID string) ([]store.StudentRecord, error)
}

// Config tunes the service.
type Config struct {
	// SubmitOnMark broadcasts a student's mark to the ledger immediately.
	SubmitOnMark bool

	// CallTimeout bounds every ledger call. Zero means DefaultCallTimeout.
	CallTimeout time.Duration

	// Concurrency bounds per-student fan-out during reconciliation.
	// Zero means DefaultConcurrency.
	Concurrency int
}

const (
	DefaultCallTimeout = 15 * time.Second
	DefaultConcurrency = 4
)

// Deps are the collaborators of the service. Store and Ledger are
// required; the rest default to no-ops.
type Deps struct {
	Store  Store
	Ledger ledger.Client
	Audit  *audit.Recorder
	Events events.Publisher

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// NewID generates session ids. Defaults to uuid.NewString.
	NewID func() string
}

// Service implements the session lifecycle, attendance marking and the
// reconciliation engine on top of a document store and a ledger client.
type Service struct {
	cfg    Config
	store  Store
	ledger ledger.Client
	audit  *audit.Recorder
	events events.Publisher
	now    func() time.Time
	newID  func() string
}

// NewService validates deps and applies defaults.
func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("attendance: store is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("attendance: ledger client is required")
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	s := &Service{
		cfg:    cfg,
		store:  deps.Store,
		ledger: deps.Ledger,
		audit:  deps.Audit,
		events: deps.Events,
		now:    deps.Clock,
		newID:  deps.NewID,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// storeError translates store sentinels into domain errors. notFound is
// the kind used for store.ErrNotFound.
func storeError(op string, err error, notFound Kind, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return newError(notFound, op, what+" not found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(KindInfrastructure, op, "request cancelled", err)
	default:
		var de *Error
		if errors.As(err, &de) {
			return err
		}
		return newError(KindInfrastructure, op, "store failure", err)
	}
}

// canManageSession reports whether p may act as the session's teacher.
func canManageSession(p models.Principal, sess *models.Session) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return sess.TeacherID == p.ID
	case models.RoleStudent:
		return false
	default:
		return false
	}
}

// ledgerCtx derives the per-call timeout context.
func (s *Service) ledgerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}
