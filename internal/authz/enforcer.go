// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/rollcall/internal/config"
	"github.com/tomtom215/rollcall/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects guarded by the policy.
const (
	ObjectSessions   = "sessions"
	ObjectAttendance = "attendance"
	ObjectClasses    = "classes"
	ObjectStudents   = "students"
	ObjectLedger     = "ledger"
)

// Actions named in the policy.
const (
	ActionCreate   = "create"
	ActionRead     = "read"
	ActionWrite    = "write"
	ActionStart    = "start"
	ActionEnd      = "end"
	ActionWatch    = "watch"
	ActionMark     = "mark"
	ActionOverride = "override"
	ActionFinalize = "finalize"
	ActionBalance  = "balance"
)

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// ModelPath is the Casbin model file. Empty uses the embedded model.
	ModelPath string

	// PolicyPath is the Casbin policy file. Empty uses the embedded policy.
	PolicyPath string

	// ReloadInterval re-reads PolicyPath periodically when positive.
	ReloadInterval time.Duration
}

// EnforcerConfigFromSecurity builds an EnforcerConfig from the security section.
func EnforcerConfigFromSecurity(cfg *config.SecurityConfig) EnforcerConfig {
	if cfg == nil {
		return EnforcerConfig{}
	}
	return EnforcerConfig{ModelPath: cfg.CasbinModelPath, PolicyPath: cfg.CasbinPolicyPath}
}

// Enforcer wraps a synchronized Casbin enforcer keyed by role.
type Enforcer struct {
	enforcer   *casbin.SyncedEnforcer
	policyPath string
}

// NewEnforcer loads the model and policy. A configured path that does not
// exist is an error rather than a silent fallback to the embedded copy.
func NewEnforcer(cfg EnforcerConfig) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg.ModelPath != "" {
		if err := requireFile(cfg.ModelPath); err != nil {
			return nil, err
		}
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" {
		if err := requireFile(cfg.PolicyPath); err != nil {
			return nil, err
		}
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if cfg.PolicyPath != "" && cfg.ReloadInterval > 0 {
		enforcer.StartAutoLoadPolicy(cfg.ReloadInterval)
	}

	return &Enforcer{enforcer: enforcer, policyPath: cfg.PolicyPath}, nil
}

// loadEmbeddedPolicy parses policy CSV lines into p and g rules.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch rule := parts[1:]; parts[0] {
		case "p":
			if len(rule) != 3 {
				return fmt.Errorf("malformed policy line %q", line)
			}
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case "g":
			if len(rule) != 2 {
				return fmt.Errorf("malformed grouping line %q", line)
			}
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		default:
			return fmt.Errorf("unknown policy type %q", parts[0])
		}
	}
	return nil
}

// Enforce reports whether the role may perform action on object.
// Invalid roles are always denied.
func (e *Enforcer) Enforce(role models.Role, object, action string) (bool, error) {
	if !role.Valid() {
		return false, nil
	}
	allowed, err := e.enforcer.Enforce(role.String(), object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// LoadPolicy re-reads the policy file. It is a no-op for the embedded policy.
func (e *Enforcer) LoadPolicy() error {
	if e.policyPath == "" {
		return nil
	}
	return e.enforcer.LoadPolicy()
}

// Close stops policy auto-reload.
func (e *Enforcer) Close() {
	e.enforcer.StopAutoLoadPolicy()
}

func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("casbin file %s: %w", path, err)
	}
	return nil
}
