// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package services adapts blocking components to suture.Service.

The websocket hub, outbox relay and scheduler implement Serve themselves and
are added to the tree directly. This package covers the rest:

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancel
  - EventRouterService: builds and runs a fresh watermill router per start
  - CleanupService: periodic CleanupExpired for the session store

Return values drive supervision: ctx.Err() on shutdown, a non-nil error to
request a restart.
*/
package services
