// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package services

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/nextstream/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

// fakeRouter returns err immediately, or blocks until ctx ends when block is set.
type fakeRouter struct {
	err   error
	block bool
}

func (r *fakeRouter) Run(ctx context.Context) error {
	if r.block {
		<-ctx.Done()
		return nil
	}
	return r.err
}

func TestEventRouterServiceBuildsPerStart(t *testing.T) {
	var builds atomic.Int32
	svc := NewEventRouterService(func() (MessageRouter, error) {
		builds.Add(1)
		return &fakeRouter{block: true}, nil
	})

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		cancel()
		if err := <-errCh; !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve() = %v, want context.Canceled", err)
		}
	}
	if builds.Load() != 2 {
		t.Errorf("builds = %d, want 2", builds.Load())
	}
	if svc.String() != "event-router" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestEventRouterServiceErrors(t *testing.T) {
	buildErr := errors.New("subscribe failed")
	runErr := errors.New("handler panic")

	tests := []struct {
		name  string
		build RouterFactory
		want  error
	}{
		{"build error", func() (MessageRouter, error) { return nil, buildErr }, buildErr},
		{"run error", func() (MessageRouter, error) { return &fakeRouter{err: runErr}, nil }, runErr},
		{"early clean exit", func() (MessageRouter, error) { return &fakeRouter{}, nil }, errRouterStopped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEventRouterService(tt.build).Serve(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("Serve() = %v, want %v", err, tt.want)
			}
		})
	}
}

// fakeCleaner counts calls and fails the first one.
type fakeCleaner struct {
	calls atomic.Int32
}

func (c *fakeCleaner) CleanupExpired(context.Context) (int, error) {
	if c.calls.Add(1) == 1 {
		return 0, errors.New("badger busy")
	}
	return 2, nil
}

func TestCleanupServiceKeepsRunningAfterError(t *testing.T) {
	cleaner := &fakeCleaner{}
	svc := NewCleanupService("session-cleanup", cleaner, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for cleaner.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if cleaner.calls.Load() < 3 {
		t.Errorf("cleanup ran %d times, want at least 3", cleaner.calls.Load())
	}
}

func TestNewCleanupServiceDefaults(t *testing.T) {
	svc := NewCleanupService("session-cleanup", &fakeCleaner{}, 0)
	if svc.interval != 10*time.Minute {
		t.Errorf("interval = %v, want 10m", svc.interval)
	}
	if svc.String() != "session-cleanup" {
		t.Errorf("String() = %q", svc.String())
	}
}
