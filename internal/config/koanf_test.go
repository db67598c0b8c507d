// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Security.TokenTTL != 24*time.Hour {
		t.Errorf("Security.TokenTTL = %v, want 24h", cfg.Security.TokenTTL)
	}
	if cfg.Ledger.Enabled {
		t.Error("Ledger should be disabled by default")
	}
	if cfg.Ledger.CallTimeout != 10*time.Second {
		t.Errorf("Ledger.CallTimeout = %v, want 10s", cfg.Ledger.CallTimeout)
	}
	if cfg.Reconcile.Concurrency != 4 {
		t.Errorf("Reconcile.Concurrency = %d, want 4", cfg.Reconcile.Concurrency)
	}
	if cfg.Events.NATSURL != "" {
		t.Errorf("Events.NATSURL = %q, want empty (channel bus)", cfg.Events.NATSURL)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORE_IN_MEMORY", "true")
	t.Setenv("LEDGER_ENABLED", "true")
	t.Setenv("LEDGER_URL", "https://ledger.example.com")
	t.Setenv("LEDGER_MASTER_SEED", testSecret)
	t.Setenv("LEDGER_CALL_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RECONCILE_CONCURRENCY", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.Store.InMemory {
		t.Error("Store.InMemory should be true")
	}
	if !cfg.Ledger.Enabled || cfg.Ledger.URL != "https://ledger.example.com" {
		t.Errorf("Ledger = %+v, want enabled with URL", cfg.Ledger)
	}
	if cfg.Ledger.CallTimeout != 3*time.Second {
		t.Errorf("Ledger.CallTimeout = %v, want 3s", cfg.Ledger.CallTimeout)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Reconcile.Concurrency != 8 {
		t.Errorf("Reconcile.Concurrency = %d, want 8", cfg.Reconcile.Concurrency)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := strings.Join([]string{
		"server:",
		"  port: 7000",
		"security:",
		"  jwt_secret: " + testSecret,
		"store:",
		"  path: " + filepath.Join(dir, "data"),
		"logging:",
		"  level: debug",
		"  format: console",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server:\n  port: 7000\nsecurity:\n  jwt_secret: " + testSecret + "\nstore:\n  in_memory: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Server.Port = %d, want env value 7100", cfg.Server.Port)
	}
}

func TestLoad_MissingSecretFails(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail with a short JWT secret")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":       "server.port",
		"LEDGER_URL":      "ledger.url",
		"nats_url":        "events.nats_url",
		"UNRELATED_VAR":   "",
		"PATH":            "",
		"LOG_FORMAT":      "logging.format",
		"STORE_IN_MEMORY": "store.in_memory",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
