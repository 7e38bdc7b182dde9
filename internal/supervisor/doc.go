// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package supervisor runs NextStream's long-lived services under suture v4.

# Tree

	nextstream
	├── data-layer
	│   ├── outbox-relay
	│   └── session-cleanup
	├── messaging-layer
	│   ├── event-router       (watermill consumers: websocket, push, email)
	│   ├── websocket-hub
	│   └── scheduler          (four cron jobs)
	└── api-layer
	    └── http-server

Each layer restarts its own children with exponential backoff. A consumer
that keeps failing enters backoff inside the messaging layer while the API
layer keeps serving.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddDataService(relay)
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	return tree.Serve(ctx)

Supervisor events (start, stop, failure, backoff) are logged through
sutureslog into the zerolog adapter in internal/logging.

See internal/supervisor/services for the adapters that turn blocking
components into suture.Service values.
*/
package supervisor
