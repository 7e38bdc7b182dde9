// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "info", Output: io.Discard})
}

// testConfig loads configuration from the environment the way main does,
// pointed at an in-memory sqlite database and a stub TMDB server.
func testConfig(t *testing.T, schedulerEnabled bool) *config.Config {
	t.Helper()

	tmdbStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"page":1,"results":[],"total_pages":1,"total_results":0}`)
	}))
	t.Cleanup(tmdbStub.Close)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HTTP_HOST", "127.0.0.1")
	t.Setenv("HTTP_PORT", strconv.Itoa(port))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=UTC", t.Name()))
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("TMDB_BASE_URL", tmdbStub.URL)
	t.Setenv("SCHEDULER_ENABLED", strconv.FormatBool(schedulerEnabled))
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestNewAppServesHealth(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t, false))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	if a.scheduler != nil {
		t.Error("scheduler built while disabled")
	}

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health/live = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendar/1/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated calendar request = %d, want 401", rec.Code)
	}
}

func TestNewAppBuildsScheduler(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t, true))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	if a.scheduler == nil {
		t.Fatal("scheduler not built")
	}
	if _, err := a.buildTree(); err != nil {
		t.Fatalf("buildTree: %v", err)
	}
}

func TestNewAppRejectsUnreachableDatabase(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"

	a, err := newApp(context.Background(), cfg)
	if err == nil {
		a.close()
		t.Fatal("newApp succeeded without a database")
	}
	if a != nil {
		t.Error("newApp returned a partial app on error")
	}
}

func TestAppRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, true)
	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	url := "http://" + cfg.Server.Addr() + "/health/live"
	deadline := time.Now().Add(5 * time.Second)
	var resp *http.Response
	for time.Now().Before(deadline) {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() = %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
