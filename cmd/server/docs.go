// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package main provides the NextStream HTTP server
//
// NextStream API backs a movie and TV discovery client with personal
// calendars, friend sharing, direct messages and recommendations.
//
// @title NextStream API
// @version 1.0
// @description Media discovery and social scheduling backend
// @description
// @description ## Features
// @description
// @description - **Discovery**: TMDB search, details, trailers and streaming providers through a caching proxy
// @description - **Calendar**: personal watch events with reminders and shared events between friends
// @description - **Social**: friend requests, direct messages with sequence-based catch-up, typing indicators
// @description - **Recommendations**: per-user suggestions with session memory and an optional like classifier
// @description - **Real-time Updates**: WebSocket delivery of messages, invitations and friend events
// @description
// @description ## Authentication
// @description
// @description Log in with `/api/auth/login` or start a guest session with `/api/auth/guest`.
// @description The token is set as an HTTP-only `token` cookie and is also accepted as a Bearer header.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message"
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-01-18T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/nextstream/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /api
// @schemes http https
//
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name token
// @description JWT stored in an HTTP-only cookie. Obtain via /api/auth/login or /api/auth/guest.
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer " followed by the JWT.
//
// @tag.name auth
// @tag.description Registration, login, guest sessions and logout
//
// @tag.name users
// @tag.description Profiles, search, preferences and liked media
//
// @tag.name calendar
// @tag.description Personal watch events and reminders
//
// @tag.name sharing
// @tag.description Shared calendar events and invitations between friends
//
// @tag.name friends
// @tag.description Friend requests and friendships
//
// @tag.name messages
// @tag.description Direct messages between friends
//
// @tag.name media
// @tag.description Watch history and per-title state
//
// @tag.name tmdb
// @tag.description Cached proxy for the TMDB catalog
//
// @tag.name recommendations
// @tag.description Personal recommendations and popular releases
package main
