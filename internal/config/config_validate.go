// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// minSecretLength applies to the JWT secret and the ledger master seed.
const minSecretLength = 32

// maxReconcileConcurrency caps per-batch fan-out towards the ledger.
const maxReconcileConcurrency = 64

// Validate checks the configuration and returns every problem found, joined.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateServer(),
		c.validateSecurity(),
		c.validateStore(),
		c.validateLedger(),
		c.validateEvents(),
		c.validateReconcile(),
		c.validateLogging(),
	)
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if len(s.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if !s.RateLimitDisabled && (s.RateLimitReqs <= 0 || s.RateLimitWindow <= 0) {
		return fmt.Errorf("rate limit requires positive RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW")
	}
	if c.Server.IsProduction() {
		for _, origin := range s.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateLedger() error {
	l := c.Ledger
	if !l.Enabled {
		if l.SubmitOnMark {
			return fmt.Errorf("LEDGER_SUBMIT_ON_MARK requires LEDGER_ENABLED=true")
		}
		return nil
	}
	if err := validateHTTPURL(l.URL, "LEDGER_URL"); err != nil {
		return err
	}
	if len(l.MasterSeed) < minSecretLength {
		return fmt.Errorf("LEDGER_MASTER_SEED must be at least %d characters", minSecretLength)
	}
	if l.CallTimeout <= 0 {
		return fmt.Errorf("LEDGER_CALL_TIMEOUT must be positive")
	}
	if l.RequestsPerSecond < 0 {
		return fmt.Errorf("LEDGER_REQUESTS_PER_SECOND must not be negative")
	}
	return nil
}

func (c *Config) validateEvents() error {
	e := c.Events
	if !e.Enabled {
		return nil
	}
	if e.EmbeddedServer && strings.TrimSpace(e.StoreDir) == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	if e.NATSURL == "" {
		return nil
	}
	u, err := url.Parse(e.NATSURL)
	if err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if u.Scheme != "nats" && u.Scheme != "tls" {
		return fmt.Errorf("NATS_URL scheme must be nats or tls, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("NATS_URL host is required")
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if n := c.Reconcile.Concurrency; n < 1 || n > maxReconcileConcurrency {
		return fmt.Errorf("RECONCILE_CONCURRENCY must be between 1 and %d, got %d", maxReconcileConcurrency, n)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL accepts an http(s) base URL without query parameters.
func validateHTTPURL(raw, field string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s failed to parse: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", field)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("%s must not contain query parameters", field)
	}
	return nil
}
