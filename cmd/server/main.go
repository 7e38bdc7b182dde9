// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package main

import (
	"context"
	"os/signal"
	"slices"
	"syscall"

	_ "github.com/tomtom215/nextstream/docs" // registers the swagger spec
	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Driver).
		Str("session_store", cfg.Session.Backend).
		Bool("nats", cfg.NATS.Enabled).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Msg("Starting NextStream")

	warnInsecureSettings(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.close()

	if err := a.run(ctx); err != nil {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
		return
	}
	logging.Info().Msg("Application stopped gracefully")
}

// warnInsecureSettings logs settings that are acceptable in development but
// not on a public deployment.
func warnInsecureSettings(cfg *config.Config) {
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	if slices.Contains(cfg.Security.CORSOrigins, "*") {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Any website can make credentialed requests to the API.")
		logging.Warn().Msg("  Set CORS_ORIGINS to the frontend origin in production.")
		logging.Warn().Msg("============================================================")
	}

	if cfg.Session.Backend == "memory" && cfg.IsProduction() {
		logging.Warn().Msg("Recommendation sessions use the memory backend and are lost on restart (SESSION_BACKEND=badger persists them)")
	}

	if !cfg.Security.CookieSecure && cfg.IsProduction() {
		logging.Warn().Msg("Auth cookies are sent without the Secure flag in production")
	}
}
