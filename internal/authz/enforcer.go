// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package authz

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"

	"github.com/tomtom215/nextstream/internal/config"
)

var (
	//go:embed model.conf
	builtinModel string

	//go:embed policy.csv
	builtinPolicy string
)

// ErrNoAdapter is returned by LoadPolicy when the built-in policy is active.
var ErrNoAdapter = errors.New("authz: built-in policy cannot be reloaded")

// EnforcerConfig selects the model and policy and tunes the decision cache.
// Empty paths use the copies compiled into the binary.
type EnforcerConfig struct {
	ModelPath  string
	PolicyPath string

	// AutoReload polls PolicyPath every ReloadInterval.
	AutoReload     bool
	ReloadInterval time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration
}

func DefaultEnforcerConfig() *EnforcerConfig {
	return &EnforcerConfig{
		ReloadInterval: 30 * time.Second,
		CacheEnabled:   true,
		CacheTTL:       5 * time.Minute,
	}
}

// ConfigFromSecurity reads CASBIN_MODEL_PATH and CASBIN_POLICY_PATH. An
// operator-supplied policy file is polled for changes.
func ConfigFromSecurity(cfg *config.SecurityConfig) *EnforcerConfig {
	c := DefaultEnforcerConfig()
	c.ModelPath = cfg.CasbinModelPath
	c.PolicyPath = cfg.CasbinPolicyPath
	c.AutoReload = c.PolicyPath != ""
	return c
}

// Enforcer answers role/path/method questions against the casbin policy.
type Enforcer struct {
	cfg   *EnforcerConfig
	ce    *casbin.SyncedEnforcer
	cache *enforcementCache // nil when disabled
}

func NewEnforcer(_ context.Context, cfg *EnforcerConfig) (*Enforcer, error) {
	if cfg == nil {
		cfg = DefaultEnforcerConfig()
	}

	m, err := loadModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	adapter, err := policyAdapter(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	ce, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("authz: build enforcer: %w", err)
	}
	if cfg.AutoReload && cfg.PolicyPath != "" && cfg.ReloadInterval > 0 {
		ce.StartAutoLoadPolicy(cfg.ReloadInterval)
	}

	e := &Enforcer{cfg: cfg, ce: ce}
	if cfg.CacheEnabled {
		e.cache = newEnforcementCache(cfg.CacheTTL)
	}
	return e, nil
}

func loadModel(path string) (model.Model, error) {
	if path == "" {
		m, err := model.NewModelFromString(builtinModel)
		if err != nil {
			return nil, fmt.Errorf("authz: built-in model: %w", err)
		}
		return m, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("authz: model file: %w", err)
	}
	m, err := model.NewModelFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("authz: parse model %s: %w", path, err)
	}
	return m, nil
}

func policyAdapter(path string) (persist.Adapter, error) {
	if path == "" {
		return stringadapter.NewAdapter(builtinPolicy), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("authz: policy file: %w", err)
	}
	return fileadapter.NewAdapter(path), nil
}

// Enforce reports whether role may call method on path.
func (e *Enforcer) Enforce(role, path, method string) (bool, error) {
	if e.cache != nil {
		if allowed, hit := e.cache.get(role, path, method); hit {
			return allowed, nil
		}
	}
	allowed, err := e.ce.Enforce(role, path, method)
	if err != nil {
		return false, fmt.Errorf("authz: enforce %s %s: %w", method, path, err)
	}
	if e.cache != nil {
		e.cache.set(role, path, method, allowed)
	}
	return allowed, nil
}

// LoadPolicy rereads the policy file now and forgets cached decisions.
func (e *Enforcer) LoadPolicy() error {
	if e.cfg.PolicyPath == "" {
		return ErrNoAdapter
	}
	if err := e.ce.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy: %w", err)
	}
	if e.cache != nil {
		e.cache.clear()
	}
	return nil
}

// Close stops policy polling and the cache sweeper.
func (e *Enforcer) Close() {
	e.ce.StopAutoLoadPolicy()
	if e.cache != nil {
		e.cache.stop()
	}
}
