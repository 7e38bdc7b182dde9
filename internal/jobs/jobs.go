// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package jobs implements the periodic jobs: the popular-releases cache
// refresh, the recommendation email, the morning reminder digest and the
// upcoming-event scan.
//
// Every per-user loop logs a failing user at WARN with user_id and job, counts
// it in scheduler_job_user_failures_total and moves on to the next user.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/nextstream/internal/cache"
	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/outbox"
	"github.com/tomtom215/nextstream/internal/recommend"
	"github.com/tomtom215/nextstream/internal/scheduler"
	"github.com/tomtom215/nextstream/internal/tmdb"
)

// Job names.
const (
	JobPopularReleases     = "popular-releases"
	JobRecommendationEmail = "recommendation-email"
	JobReminderDigest      = "reminder-digest"
	JobUpcomingEvents      = "upcoming-events"
)

// PopularReleasesKey is the cache key of the popular-releases list.
const PopularReleasesKey = "popular-releases"

const (
	recommendationsPerEmail = 6
	providerLookups         = 4
)

// Catalog is the subset of the TMDB client the jobs need.
type Catalog interface {
	Popular(ctx context.Context, mediaType string, page int) (*tmdb.Page, error)
	WatchProviders(ctx context.Context, mediaType string, id int64) (*tmdb.WatchProviders, error)
}

// Recommender computes recommendations for one user.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, opts recommend.Options) (*recommend.Result, error)
}

// Calendar is the subset of the calendar service the jobs need.
type Calendar interface {
	EventsBetween(ctx context.Context, from, to time.Time) ([]*models.Event, error)
	RemindEvent(ctx context.Context, e *models.Event) (bool, error)
	EventsForUserOn(ctx context.Context, userID int64, day time.Time, tz string) ([]models.EventView, error)
}

// Store lists opted-in users and writes email outbox rows.
type Store interface {
	UsersWithEmailNotifications(ctx context.Context) ([]*models.User, error)
	UsersWithReminderEmails(ctx context.Context) ([]*models.User, error)
	Enqueue(ctx context.Context, entries ...models.OutboxEntry) error
}

// PopularRelease is a popular title available on an allowed streaming
// service.
type PopularRelease struct {
	tmdb.Media
	Providers []string `json:"providers"`
}

// Deps wires the jobs to their collaborators.
type Deps struct {
	Store       Store
	Catalog     Catalog
	Recommender Recommender
	Calendar    Calendar
	Cache       *cache.Cache
	Relay       outbox.Kicker
	Providers   config.ProvidersConfig
	CacheTTL    time.Duration
	Window      time.Duration
	Now         func() time.Time
}

// Jobs holds the job implementations.
type Jobs struct {
	deps     Deps
	renderer *Renderer
	allowed  map[string]bool
	logger   zerolog.Logger
}

// New validates deps and parses the email templates.
func New(deps Deps) (*Jobs, error) {
	if deps.Store == nil || deps.Catalog == nil || deps.Calendar == nil || deps.Cache == nil {
		return nil, fmt.Errorf("jobs: store, catalog, calendar and cache are required")
	}
	if deps.Relay == nil {
		deps.Relay = outbox.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Window <= 0 {
		deps.Window = 15 * time.Minute
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 2 * time.Hour
	}
	if deps.Providers.Region == "" {
		deps.Providers.Region = "US"
	}

	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(deps.Providers.AllowList))
	for _, p := range deps.Providers.AllowList {
		allowed[strings.ToLower(strings.TrimSpace(p))] = true
	}
	return &Jobs{deps: deps, renderer: renderer, allowed: allowed, logger: logging.WithComponent("jobs")}, nil
}

// Register adds the four jobs to s with the configured expressions.
func (j *Jobs) Register(s *scheduler.Scheduler, cfg config.SchedulerConfig) error {
	entries := []struct {
		name, expr string
		fn         scheduler.JobFunc
	}{
		{JobPopularReleases, cfg.PopularReleasesCron, j.PopularReleases},
		{JobRecommendationEmail, cfg.RecommendationEmailCron, j.RecommendationEmails},
		{JobReminderDigest, cfg.ReminderDigestCron, j.ReminderDigest},
		{JobUpcomingEvents, cfg.UpcomingEventsCron, j.UpcomingEvents},
	}
	for _, e := range entries {
		if e.expr == "" {
			continue
		}
		if e.name == JobRecommendationEmail && j.deps.Recommender == nil {
			continue
		}
		if err := s.Register(e.name, e.expr, e.fn); err != nil {
			return err
		}
	}
	return nil
}

// CachedPopularReleases returns the list stored by the last refresh.
func CachedPopularReleases(c *cache.Cache) ([]PopularRelease, bool) {
	v, ok := c.Get(PopularReleasesKey)
	if !ok {
		return nil, false
	}
	list, ok := v.([]PopularRelease)
	return list, ok
}

// PopularReleases fetches popular movies and shows, keeps the ones streaming
// on an allowed flatrate provider and stores them in the cache. An empty
// allow-list keeps every title with any flatrate provider.
func (j *Jobs) PopularReleases(ctx context.Context) error {
	var candidates []tmdb.Media
	for _, mt := range []string{tmdb.MediaMovie, tmdb.MediaTV} {
		page, err := j.deps.Catalog.Popular(ctx, mt, 1)
		if err != nil {
			return fmt.Errorf("fetch popular %s: %w", mt, err)
		}
		for _, m := range page.Results {
			if m.MediaType == "" {
				m.MediaType = mt
			}
			candidates = append(candidates, m)
		}
	}

	providers := make([][]string, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(providerLookups)
	for i := range candidates {
		m := candidates[i]
		g.Go(func() error {
			wp, err := j.deps.Catalog.WatchProviders(gctx, m.MediaType, m.ID)
			if err != nil {
				j.logger.Warn().Err(err).Int64("tmdb_id", m.ID).Str("job", JobPopularReleases).
					Msg("watch providers lookup failed")
				return nil
			}
			providers[i] = j.allowedProviders(wp.Region(j.deps.Providers.Region).Flatrate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := make([]PopularRelease, 0, len(candidates))
	for i, m := range candidates {
		if len(providers[i]) > 0 {
			out = append(out, PopularRelease{Media: m, Providers: providers[i]})
		}
	}
	j.deps.Cache.SetWithTTL(PopularReleasesKey, out, j.deps.CacheTTL)
	j.logger.Info().Int("candidates", len(candidates)).Int("kept", len(out)).Msg("popular releases refreshed")
	return nil
}

func (j *Jobs) allowedProviders(flatrate []tmdb.Provider) []string {
	var names []string
	for _, p := range flatrate {
		if len(j.allowed) == 0 || j.allowed[strings.ToLower(p.Name)] {
			names = append(names, p.Name)
		}
	}
	return names
}

// RecommendationEmails sends each opted-in user an email with fresh
// recommendations. Session memory is not updated.
func (j *Jobs) RecommendationEmails(ctx context.Context) error {
	users, err := j.deps.Store.UsersWithEmailNotifications(ctx)
	if err != nil {
		return fmt.Errorf("list email users: %w", err)
	}

	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := j.deps.Recommender.Recommend(ctx, u.ID, recommend.Options{Limit: recommendationsPerEmail})
		if err != nil {
			j.userFailed(JobRecommendationEmail, u.ID, err)
			continue
		}
		if len(res.Items) == 0 {
			continue
		}
		msg, err := j.renderer.Recommendations(u, res.Items)
		if err == nil {
			err = j.enqueueEmail(ctx, u, msg)
		}
		if err != nil {
			j.userFailed(JobRecommendationEmail, u.ID, err)
			continue
		}
		sent++
	}
	j.finish(JobRecommendationEmail, len(users), sent)
	return nil
}

// ReminderDigest emails each opted-in user their events for today in their
// own timezone. Users with no events today get nothing.
func (j *Jobs) ReminderDigest(ctx context.Context) error {
	users, err := j.deps.Store.UsersWithReminderEmails(ctx)
	if err != nil {
		return fmt.Errorf("list digest users: %w", err)
	}

	now := j.deps.Now()
	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		events, err := j.deps.Calendar.EventsForUserOn(ctx, u.ID, now, u.Timezone)
		if err != nil {
			j.userFailed(JobReminderDigest, u.ID, err)
			continue
		}
		if len(events) == 0 {
			continue
		}
		msg, err := j.renderer.Digest(u, events)
		if err == nil {
			err = j.enqueueEmail(ctx, u, msg)
		}
		if err != nil {
			j.userFailed(JobReminderDigest, u.ID, err)
			continue
		}
		sent++
	}
	j.finish(JobReminderDigest, len(users), sent)
	return nil
}

// UpcomingEvents reminds every event starting in (now, now+window] that was
// not reminded yet.
func (j *Jobs) UpcomingEvents(ctx context.Context) error {
	now := j.deps.Now().UTC()
	events, err := j.deps.Calendar.EventsBetween(ctx, now, now.Add(j.deps.Window))
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}

	reminded := 0
	for _, e := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ok, err := j.deps.Calendar.RemindEvent(ctx, e)
		if err != nil {
			metrics.JobUserFailures.WithLabelValues(JobUpcomingEvents).Inc()
			j.logger.Warn().Err(err).Str("job", JobUpcomingEvents).Int64("event_id", e.ID).
				Int64("user_id", e.UserID).Msg("event reminder failed")
			continue
		}
		if ok {
			reminded++
		}
	}
	if reminded > 0 {
		j.logger.Info().Int("reminded", reminded).Msg("upcoming event reminders queued")
	}
	return nil
}

func (j *Jobs) enqueueEmail(ctx context.Context, u *models.User, msg models.EmailMessage) error {
	msg.To = u.Email
	entry, err := models.NewEmail(u.ID, msg)
	if err != nil {
		return err
	}
	if err := j.deps.Store.Enqueue(ctx, entry); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	j.deps.Relay.Kick()
	return nil
}

func (j *Jobs) userFailed(job string, userID int64, err error) {
	metrics.JobUserFailures.WithLabelValues(job).Inc()
	j.logger.Warn().Err(err).Str("job", job).Int64("user_id", userID).Msg("skipping user")
}

func (j *Jobs) finish(job string, users, sent int) {
	j.logger.Info().Str("job", job).Int("users", users).Int("sent", sent).Msg("job run complete")
}
