// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
)

// ErrUnknownJob is returned by RunNow for an unregistered name.
var ErrUnknownJob = errors.New("unknown job")

// JobFunc is one run of a job. The context carries the run timeout.
type JobFunc func(ctx context.Context) error

type job struct {
	name    string
	cron    *Cron
	fn      JobFunc
	next    time.Time
	running atomic.Bool
}

// Scheduler checks registered jobs every CheckInterval and starts those
// that are due. A job that is still running when it comes due again is
// skipped for that slot.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*job
	loc      *time.Location
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a scheduler from the scheduler config section.
func New(cfg config.SchedulerConfig, opts ...Option) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}

	s := &Scheduler{
		jobs:     make(map[string]*job),
		loc:      loc,
		interval: cfg.CheckInterval,
		timeout:  cfg.JobTimeout,
		now:      time.Now,
		logger:   logging.WithComponent("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register adds a job. Its first run is the first slot after now.
func (s *Scheduler) Register(name, expr string, fn JobFunc) error {
	c, err := ParseCron(expr)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	s.jobs[name] = &job{name: name, cron: c, fn: fn, next: c.Next(s.now(), s.loc)}
	return nil
}

// NextRun returns the next scheduled slot of a job.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return j.next, true
}

// Jobs returns the registered job names in order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serve runs the check loop until ctx is canceled, then waits for running
// jobs. It implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.logger.Info().Strs("jobs", s.Jobs()).Dur("check_interval", s.interval).Msg("scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Scheduler) String() string { return "scheduler" }

// Tick starts every job whose slot is at or before now and advances its
// next slot.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if j.next.IsZero() || j.next.After(now) {
			continue
		}
		due = append(due, j)
		j.next = j.cron.Next(now, s.loc)
	}
	s.mu.Unlock()

	sort.Slice(due, func(a, b int) bool { return due[a].name < due[b].name })
	for _, j := range due {
		s.start(ctx, j)
	}
}

// RunNow runs a job synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Warn().Str("job", name).Msg("job already running, skipping")
		return nil
	}
	defer j.running.Store(false)
	return s.execute(ctx, j)
}

// Wait blocks until jobs started by Tick have finished.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) start(ctx context.Context, j *job) {
	if !j.running.CompareAndSwap(false, true) {
		metrics.JobRuns.WithLabelValues(j.name, "skipped").Inc()
		s.logger.Warn().Str("job", j.name).Msg("previous run still in progress, skipping")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer j.running.Store(false)
		_ = s.execute(ctx, j) //nolint:errcheck // logged and recorded in execute
	}()
}

func (s *Scheduler) execute(ctx context.Context, j *job) (err error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
		duration := time.Since(start)
		metrics.RecordJobRun(j.name, duration, err)
		if err != nil {
			s.logger.Error().Err(err).Str("job", j.name).Dur("duration", duration).Msg("job failed")
			return
		}
		s.logger.Debug().Str("job", j.name).Dur("duration", duration).Msg("job finished")
	}()

	return j.fn(runCtx)
}
