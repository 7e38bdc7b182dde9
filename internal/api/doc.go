// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package api provides the HTTP REST API layer for NextStream.

It exposes the calendar, sharing, friends, messaging, media status and
recommendation services over a chi router, and proxies the TMDB catalog
through an injected TTL cache.

Key Components:

  - Router: chi route table and middleware stack (SetupChi)
  - Handler: one method per endpoint, grouped by domain in handlers_*.go
  - Response formatting: every body is an APIResponse envelope
  - Error mapping: service sentinel errors become HTTP statuses in one table
  - ChiMiddleware: CORS, per-IP rate limits, request IDs, security headers

API Categories:

 1. Auth (/api/auth/): register, login, guest, logout, me
 2. Users (/api/users/{userId}): profile, notification preferences, deletion
 3. Calendar (/api/calendar/{userId}/): events, shares, invites
 4. Social (/api/friends/{userId}/, /api/messages/{userId}/)
 5. Media (/api/media-status/{userId}/, /api/interactions)
 6. Discovery (/api/tmdb/, /api/recommendations/)
 7. Real-time (/ws): websocket upgrade into the caller's user room
 8. Operations (/health, /metrics, /swagger/)

Access Control:

Every /api route except register, login and guest needs a token from the
"token" cookie, the "guestToken" cookie or a bearer header. Casbin decides
what each role may call; guests only reach the TMDB proxy and popular lists.
Routes with a {userId} segment additionally require it to equal the caller.

Usage Example:

	handler := api.NewHandler(api.Deps{Config: cfg, DB: db, ...})
	router := api.NewRouter(handler,
	    auth.NewMiddleware(jwtManager, api.WriteError),
	    authz.NewMiddleware(enforcer, api.WriteError),
	    api.NewChiMiddlewareFromSecurity(&cfg.Security))
	http.ListenAndServe(cfg.Server.Addr(), router.SetupChi())

Thread Safety:

Handlers hold no per-request state. The services, cache and hub they call
are safe for concurrent use.
*/
package api
