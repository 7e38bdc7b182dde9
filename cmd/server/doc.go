// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package main is the entry point for the NextStream server.

NextStream is the backend of a media discovery client. It proxies the TMDB
catalog, keeps personal and shared watch calendars, delivers direct messages
between friends and produces per-user recommendations.

# Application Architecture

Long-lived components run under Suture v4 supervision:

	RootSupervisor ("nextstream")
	├── DataSupervisor ("data-layer")
	│   ├── Outbox relay (database rows to the event bus)
	│   └── Session cleanup (expired recommendation memory)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Event router (watermill handlers: websocket fan-out, notifications)
	│   ├── WebSocket hub
	│   └── Scheduler (popular releases, digests, reminders)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with .env, config file and environment variables
 2. Logging: zerolog with JSON/console output modes
 3. Storage: database/sql (sqlite, postgres, mysql or duckdb), proxy cache, session store
 4. Event bus: watermill over an in-process channel or NATS JetStream
 5. Auth: JWT manager and Casbin enforcer
 6. Domain services: calendar, sharing, social, media, recommendations
 7. Notifications: SMTP email and push forwarder
 8. Scheduled jobs
 9. HTTP server: Chi router with middleware stack

# Configuration

	# Server
	HTTP_PORT=8080
	ENVIRONMENT=production       # development or production
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Storage
	DB_DRIVER=postgres           # sqlite, postgres, mysql, duckdb
	DATABASE_URL=postgres://...

	# Auth
	JWT_SECRET=<32+ chars>
	CORS_ORIGINS=https://app.example.com

	# Catalog
	TMDB_API_KEY=<key>

	# Optional
	NATS_ENABLED=true
	SESSION_BACKEND=badger
	SMTP_ENABLED=true

# Signal Handling

SIGINT and SIGTERM cancel the root context. Each layer stops its services
within SHUTDOWN_TIMEOUT, the HTTP server drains in-flight requests, and
storage is closed last.

# Example Usage

	export JWT_SECRET=$(openssl rand -hex 32)
	export TMDB_API_KEY=your-tmdb-key
	export DB_DRIVER=sqlite DATABASE_URL=file:nextstream.db
	./nextstream

Swagger UI is served at /swagger/index.html.
*/
package main
