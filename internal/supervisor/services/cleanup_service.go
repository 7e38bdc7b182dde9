// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package services

import (
	"context"
	"time"

	"github.com/tomtom215/nextstream/internal/logging"
)

// Cleaner removes expired entries and reports how many went.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// CleanupService calls CleanupExpired on a fixed interval. Errors are logged
// and retried on the next tick; they never stop the service.
type CleanupService struct {
	cleaner  Cleaner
	interval time.Duration
	name     string
}

// NewCleanupService creates the service. A non-positive interval becomes ten
// minutes.
func NewCleanupService(name string, cleaner Cleaner, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CleanupService{cleaner: cleaner, interval: interval, name: name}
}

// Serve implements suture.Service.
func (s *CleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *CleanupService) runOnce(ctx context.Context) {
	removed, err := s.cleaner.CleanupExpired(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("Cleanup failed, retrying next interval")
		return
	}
	if removed > 0 {
		logging.Debug().Str("service", s.name).Int("removed", removed).Msg("Expired entries removed")
	}
}

// String implements fmt.Stringer for suture log messages.
func (s *CleanupService) String() string {
	return s.name
}
