// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package outbox relays side effects recorded in the outbox table to the
// event bus.
//
// Services insert outbox rows in the same transaction as the state change
// and call Kick after commit. The relay publishes rows in id order and marks
// each one delivered only after the publish succeeded, so delivery is at
// least once and a crash between the two steps re-sends the row with the
// same id.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
)

// Kicker wakes the relay after a commit.
type Kicker interface {
	Kick()
}

// Nop is a Kicker that does nothing.
type Nop struct{}

// Kick implements Kicker.
func (Nop) Kick() {}

// Store is the outbox table.
type Store interface {
	PendingOutbox(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEntry, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error) error
	OutboxStats(ctx context.Context, maxAttempts int) (pending, dead int64, err error)
	PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher sends one envelope to the bus.
type Publisher interface {
	PublishEnvelope(env *models.Envelope) error
}

const (
	purgeInterval = time.Hour
	retention     = 24 * time.Hour
)

// Relay moves outbox rows to the bus. It implements suture.Service.
type Relay struct {
	store  Store
	pub    Publisher
	cfg    config.OutboxConfig
	kick   chan struct{}
	logger zerolog.Logger
}

// NewRelay creates a relay.
func NewRelay(store Store, pub Publisher, cfg config.OutboxConfig) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Relay{
		store:  store,
		pub:    pub,
		cfg:    cfg,
		kick:   make(chan struct{}, 1),
		logger: logging.WithComponent("outbox"),
	}
}

// Kick requests a flush without waiting for the next poll.
func (r *Relay) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Serve polls until ctx is canceled.
func (r *Relay) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	lastPurge := time.Now()

	r.flushAndReport(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-r.kick:
		}
		r.flushAndReport(ctx)

		if time.Since(lastPurge) >= purgeInterval {
			lastPurge = time.Now()
			if n, err := r.store.PurgeDelivered(ctx, time.Now().Add(-retention)); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to purge delivered outbox rows")
			} else if n > 0 {
				r.logger.Debug().Int64("rows", n).Msg("Purged delivered outbox rows")
			}
		}
	}
}

// String names the service in the supervisor tree.
func (r *Relay) String() string { return "outbox-relay" }

func (r *Relay) flushAndReport(ctx context.Context) {
	if _, err := r.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn().Err(err).Msg("Outbox flush stopped early")
	}
	pending, dead, err := r.store.OutboxStats(ctx, r.cfg.MaxAttempts)
	if err != nil {
		return
	}
	metrics.OutboxPending.Set(float64(pending))
	metrics.OutboxDead.Set(float64(dead))
}

// Flush publishes pending rows until none remain or a publish fails. It
// returns the number of rows delivered.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	delivered := 0
	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		batch, err := r.store.PendingOutbox(ctx, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return delivered, fmt.Errorf("load pending outbox rows: %w", err)
		}
		for i := range batch {
			if err := r.deliver(ctx, &batch[i]); err != nil {
				return delivered, err
			}
			delivered++
		}
		if len(batch) < r.cfg.BatchSize {
			return delivered, nil
		}
	}
}

// deliver publishes one row. A failed publish is recorded on the row and
// ends the flush so later rows do not overtake it.
func (r *Relay) deliver(ctx context.Context, e *models.OutboxEntry) error {
	env := &models.Envelope{
		ID: e.ID, Topic: e.Topic, Room: e.Room, Event: e.Event, UserID: e.UserID, Payload: e.Payload,
	}
	if err := r.pub.PublishEnvelope(env); err != nil {
		metrics.OutboxFailures.WithLabelValues(e.Topic).Inc()
		if markErr := r.store.MarkFailed(ctx, e.ID, err); markErr != nil {
			r.logger.Error().Err(markErr).Int64("outbox_id", e.ID).Msg("Failed to record outbox failure")
		}
		if e.Attempts+1 >= r.cfg.MaxAttempts {
			r.logger.Error().Err(err).Int64("outbox_id", e.ID).Str("topic", e.Topic).Str("event", e.Event).
				Msg("Outbox row exhausted its attempts")
			return nil
		}
		return fmt.Errorf("publish outbox row %d: %w", e.ID, err)
	}
	metrics.OutboxPublished.WithLabelValues(e.Topic).Inc()
	if err := r.store.MarkDelivered(ctx, e.ID); err != nil {
		return fmt.Errorf("mark outbox row %d delivered: %w", e.ID, err)
	}
	return nil
}
