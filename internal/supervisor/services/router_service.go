// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package services

import (
	"context"
	"errors"
	"fmt"
)

// MessageRouter is the lifecycle subset of *eventbus.Router.
type MessageRouter interface {
	Run(ctx context.Context) error
}

// RouterFactory builds a router with its handlers registered. A watermill
// router cannot run twice, so every (re)start builds a new one.
type RouterFactory func() (MessageRouter, error)

// errRouterStopped is returned when the router exits while the service is
// still wanted, so suture restarts it.
var errRouterStopped = errors.New("event router stopped unexpectedly")

// EventRouterService runs the event bus consumers under supervision.
type EventRouterService struct {
	build RouterFactory
	name  string
}

// NewEventRouterService creates the service. build is called on every start.
func NewEventRouterService(build RouterFactory) *EventRouterService {
	return &EventRouterService{build: build, name: "event-router"}
}

// Serve implements suture.Service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	router, err := s.build()
	if err != nil {
		return fmt.Errorf("build event router: %w", err)
	}

	err = router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event router failed: %w", err)
	}
	return errRouterStopped
}

// String implements fmt.Stringer for suture log messages.
func (s *EventRouterService) String() string {
	return s.name
}
