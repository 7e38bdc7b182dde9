// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
)

// EnvelopeHandler consumes one decoded envelope.
type EnvelopeHandler func(ctx context.Context, env *models.Envelope) error

// RouterConfig controls consumer retries.
type RouterConfig struct {
	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// DefaultRouterConfig returns production defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
	}
}

// Router dispatches bus topics to envelope handlers.
type Router struct {
	router *message.Router
	bus    *Bus
	logger watermill.LoggerAdapter
}

// NewRouter creates a router reading from bus.
func NewRouter(bus *Bus, cfg RouterConfig) (*Router, error) {
	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, bus.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	wmRouter.AddMiddleware(ackAfterRetries(bus.logger), middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2,
		Logger:          bus.logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	return &Router{router: wmRouter, bus: bus, logger: bus.logger}, nil
}

// Handle registers fn for topic. Envelopes that fail after retries are
// logged and acknowledged; the outbox row is already marked delivered, so
// they are not redelivered.
func (r *Router) Handle(name, topic string, fn EnvelopeHandler) {
	r.router.AddConsumerHandler(name, topic, r.bus.Subscriber(), func(msg *message.Message) error {
		env, err := DecodeEnvelope(msg)
		if err != nil {
			metrics.EventBusConsumed.WithLabelValues(topic, "malformed").Inc()
			r.logger.Error("Dropping malformed envelope", err, watermill.LogFields{"uuid": msg.UUID})
			return nil
		}
		if err := fn(msg.Context(), env); err != nil {
			metrics.EventBusConsumed.WithLabelValues(topic, "error").Inc()
			return err
		}
		metrics.EventBusConsumed.WithLabelValues(topic, "ok").Inc()
		return nil
	})
}

// ackAfterRetries is the outermost middleware: once retries are spent the
// message is acknowledged so gochannel and JetStream do not redeliver it
// forever.
func ackAfterRetries(logger watermill.LoggerAdapter) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			msgs, err := h(msg)
			if err != nil {
				logger.Error("Envelope handler gave up", err, watermill.LogFields{"uuid": msg.UUID})
				return nil, nil
			}
			return msgs, nil
		}
	}
}

// Run blocks until ctx is canceled or the router fails.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close stops the router.
func (r *Router) Close() error {
	return r.router.Close()
}
