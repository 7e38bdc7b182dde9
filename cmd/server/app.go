// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/nextstream/internal/api"
	"github.com/tomtom215/nextstream/internal/auth"
	"github.com/tomtom215/nextstream/internal/authz"
	"github.com/tomtom215/nextstream/internal/cache"
	"github.com/tomtom215/nextstream/internal/calendar"
	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/eventbus"
	"github.com/tomtom215/nextstream/internal/jobs"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/media"
	"github.com/tomtom215/nextstream/internal/notify"
	"github.com/tomtom215/nextstream/internal/outbox"
	"github.com/tomtom215/nextstream/internal/recommend"
	"github.com/tomtom215/nextstream/internal/scheduler"
	"github.com/tomtom215/nextstream/internal/session"
	"github.com/tomtom215/nextstream/internal/sharing"
	"github.com/tomtom215/nextstream/internal/social"
	"github.com/tomtom215/nextstream/internal/supervisor"
	"github.com/tomtom215/nextstream/internal/supervisor/services"
	"github.com/tomtom215/nextstream/internal/tmdb"
	ws "github.com/tomtom215/nextstream/internal/websocket"
)

// sessionCleanupInterval is how often expired recommendation memories are
// removed.
const sessionCleanupInterval = 10 * time.Minute

// app holds every wired component. Fields are set in dependency order by
// newApp and released in reverse by close.
type app struct {
	cfg *config.Config

	db       *database.DB
	bus      *eventbus.Bus
	cache    *cache.Cache
	sessions session.Store
	enforcer *authz.Enforcer

	relay     *outbox.Relay
	hub       *ws.Hub
	forwarder *notify.Forwarder
	scheduler *scheduler.Scheduler
	jobs      *jobs.Jobs
	server    *http.Server

	closers []func()
}

// newApp builds the dependency graph. On error everything opened so far is
// closed before returning.
//
//nolint:gocyclo // sequential wiring
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// === STORAGE ===
	a.db, err = database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.onClose("database", a.db.Close)

	a.cache = cache.New(cfg.Cache.ProxyTTL)
	a.closers = append(a.closers, a.cache.Close)

	a.sessions, err = session.New(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.onClose("session store", a.sessions.Close)

	// === EVENT BUS + OUTBOX ===
	a.bus, err = eventbus.New(&cfg.NATS, logging.NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}
	a.onClose("event bus", a.bus.Close)
	logging.Info().Str("transport", a.bus.Transport()).Msg("Event bus ready")

	a.relay = outbox.NewRelay(a.db, a.bus, cfg.Outbox)

	// === DOMAIN SERVICES ===
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("create JWT manager: %w", err)
	}
	a.enforcer, err = authz.NewEnforcer(ctx, authz.ConfigFromSecurity(&cfg.Security))
	if err != nil {
		return nil, fmt.Errorf("create authorization enforcer: %w", err)
	}
	a.closers = append(a.closers, a.enforcer.Close)

	calendarSvc := calendar.NewService(a.db, a.relay)
	sharingSvc := sharing.NewService(a.db, a.relay)
	socialSvc := social.NewService(a.db, a.relay)
	mediaSvc := media.NewService(a.db, a.relay)

	catalog := tmdb.New(&cfg.TMDB)
	engine := recommend.NewEngine(cfg.Recommend, a.db, catalog, a.sessions)

	// === REAL-TIME + NOTIFICATIONS ===
	a.hub = ws.NewHub(cfg.WebSocket, socialSvc, sharingSvc, ws.WithAllowedOrigins(cfg.Security.CORSOrigins))

	email := notify.NewEmailChannel(cfg.Notifications.SMTP)
	push := notify.NewPushChannel(cfg.Notifications.Push)
	a.forwarder = notify.NewForwarder(a.db, email, push)

	// === SCHEDULED JOBS ===
	a.jobs, err = jobs.New(jobs.Deps{
		Store:       a.db,
		Catalog:     catalog,
		Recommender: engine,
		Calendar:    calendarSvc,
		Cache:       a.cache,
		Relay:       a.relay,
		Providers:   cfg.Providers,
		CacheTTL:    cfg.Cache.PopularReleasesTTL,
		Window:      cfg.Scheduler.UpcomingWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("create jobs: %w", err)
	}
	if cfg.Scheduler.Enabled {
		a.scheduler, err = scheduler.New(cfg.Scheduler)
		if err != nil {
			return nil, fmt.Errorf("create scheduler: %w", err)
		}
		if err := a.jobs.Register(a.scheduler, cfg.Scheduler); err != nil {
			return nil, fmt.Errorf("register jobs: %w", err)
		}
	}

	// === HTTP ===
	handler := api.NewHandler(api.Deps{
		Config:      cfg,
		DB:          a.db,
		Auth:        auth.NewService(a.db, jwtManager),
		Cookies:     auth.NewCookies(&cfg.Security),
		Calendar:    calendarSvc,
		Sharing:     sharingSvc,
		Social:      socialSvc,
		Media:       mediaSvc,
		Recommender: engine,
		Catalog:     catalog,
		Cache:       a.cache,
		Hub:         a.hub,
		Version:     version,
	})
	router := api.NewRouter(handler,
		auth.NewMiddleware(jwtManager, api.WriteError),
		authz.NewMiddleware(a.enforcer, api.WriteError),
		api.NewChiMiddlewareFromSecurity(&cfg.Security),
	)
	a.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// onClose registers a closer whose error is logged.
func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, func() {
		if err := fn(); err != nil {
			logging.Error().Err(err).Str("component", name).Msg("Error during close")
		}
	})
}

// close releases resources in reverse order of creation.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newEventRouter builds a router with every consumer registered.
func (a *app) newEventRouter() (services.MessageRouter, error) {
	r, err := eventbus.NewRouter(a.bus, eventbus.DefaultRouterConfig())
	if err != nil {
		return nil, err
	}
	a.hub.RegisterHandlers(r)
	a.forwarder.Register(r)
	return r, nil
}

// buildTree places every long-lived component in the supervisor tree.
func (a *app) buildTree() (*supervisor.SupervisorTree, error) {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  a.cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return nil, err
	}

	tree.AddDataService(a.relay)
	tree.AddDataService(services.NewCleanupService("session-cleanup", a.sessions, sessionCleanupInterval))

	tree.AddMessagingService(services.NewEventRouterService(a.newEventRouter))
	tree.AddMessagingService(a.hub)
	if a.scheduler != nil {
		tree.AddMessagingService(a.scheduler)
	}

	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
	return tree, nil
}

// warmPopularReleases fills the popular-releases cache once at startup so
// the first clients do not wait for the hourly job. TMDB being down only
// delays the list until the next run.
func (a *app) warmPopularReleases(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := a.jobs.PopularReleases(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Msg("Initial popular releases refresh failed")
		return
	}
	logging.Info().Msg("Popular releases cache warmed")
}

// run serves until ctx is canceled and reports services that did not stop.
func (a *app) run(ctx context.Context) error {
	tree, err := a.buildTree()
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	go a.warmPopularReleases(ctx)

	logging.Info().Str("addr", a.server.Addr).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
