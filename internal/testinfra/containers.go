// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

//go:build integration

package testinfra

import (
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// SkipIfNoDocker skips t when no healthy container runtime answers, so the
// integration suite degrades to a no-op on laptops and CI runners without
// Docker.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// CleanupContainer terminates c when t finishes. A nil container is
// ignored so callers can register cleanup before checking the start error.
func CleanupContainer(t *testing.T, c testcontainers.Container) {
	t.Helper()
	if c == nil {
		return
	}
	testcontainers.CleanupContainer(t, c, testcontainers.StopTimeout(30*time.Second))
}
