// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package config

import (
	"fmt"
	"strings"
	"time"
)

var validDrivers = map[string]bool{"mysql": true, "postgres": true, "sqlite": true, "duckdb": true}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("DB_DRIVER must be one of mysql, postgres, sqlite, duckdb (got %q)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Security.SessionTimeout <= 0 || c.Security.GuestTimeout <= 0 {
		return fmt.Errorf("session and guest timeouts must be positive")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	if c.IsProduction() {
		for _, o := range c.Security.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("wildcard CORS origin is not allowed in production (credentials are cookie based)")
			}
		}
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if c.TMDB.MaxRetries < 1 {
		return fmt.Errorf("TMDB_MAX_RETRIES must be at least 1")
	}
	if c.TMDB.RequestTimeout <= 0 {
		return fmt.Errorf("TMDB_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSession() error {
	switch c.Session.Backend {
	case "memory":
	case "badger":
		if c.Session.Path == "" {
			return fmt.Errorf("SESSION_PATH is required for the badger session backend")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be memory or badger (got %q)", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.MinCandidates < 1 || r.MaxPages < 1 || r.MaxResults < 1 {
		return fmt.Errorf("recommend.min_candidates, max_pages and max_results must be positive")
	}
	if r.ClassifierEnabled && (r.HiddenUnits < 1 || r.Epochs < 1 || r.LearningRate <= 0) {
		return fmt.Errorf("recommend classifier needs positive hidden_units, epochs and learning_rate")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	if c.Scheduler.Timezone != "" && c.Scheduler.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("SCHEDULER_TIMEZONE %q: %w", c.Scheduler.Timezone, err)
		}
	}
	if c.Scheduler.UpcomingWindow <= 0 {
		return fmt.Errorf("scheduler.upcoming_window must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	s := c.Notifications.SMTP
	if s.Enabled && (s.Host == "" || s.From == "") {
		return fmt.Errorf("SMTP_HOST and SMTP_FROM are required when SMTP_ENABLED=true")
	}
	p := c.Notifications.Push
	if p.Enabled && p.Endpoint == "" {
		return fmt.Errorf("PUSH_ENDPOINT is required when PUSH_ENABLED=true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// IsProduction reports whether the server runs with production safeguards.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
