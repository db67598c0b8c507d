// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package config

import (
	"fmt"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Store     StoreConfig     `koanf:"store"`
	Ledger    LedgerConfig    `koanf:"ledger"`
	Audit     AuditConfig     `koanf:"audit"`
	Events    EventsConfig    `koanf:"events"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development or production
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction reports whether production-only checks apply.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// SecurityConfig covers bearer tokens, revocation, authorization and HTTP hardening.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	RevocationCleanup time.Duration `koanf:"revocation_cleanup"` // interval for sweeping expired revocations
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	CasbinModelPath   string        `koanf:"casbin_model_path"`  // empty uses the embedded model
	CasbinPolicyPath  string        `koanf:"casbin_policy_path"` // empty uses the embedded policy
}

// StoreConfig configures the BadgerDB document store.
type StoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"` // value log GC cadence
}

// LedgerConfig configures the ledger attestation gateway.
type LedgerConfig struct {
	Enabled           bool          `koanf:"enabled"`
	URL               string        `koanf:"url"`
	MasterSeed        string        `koanf:"master_seed"` // hex or raw secret for per-record key derivation
	CallTimeout       time.Duration `koanf:"call_timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"` // 0 disables pacing
	SubmitOnMark      bool          `koanf:"submit_on_mark"`
}

// AuditConfig configures the DuckDB ledger attestation log.
type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"` // empty opens an in-memory database
}

// EventsConfig configures the domain event bus.
type EventsConfig struct {
	Enabled        bool   `koanf:"enabled"`
	NATSURL        string `koanf:"nats_url"`        // empty uses the in-process channel bus
	EmbeddedServer bool   `koanf:"embedded_server"` // start a local JetStream server
	StoreDir       string `koanf:"store_dir"`
}

// ReconcileConfig tunes the finalization engine.
type ReconcileConfig struct {
	Concurrency int `koanf:"concurrency"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
