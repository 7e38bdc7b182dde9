// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/nextstream/internal/auth"
	"github.com/tomtom215/nextstream/internal/authz"
	"github.com/tomtom215/nextstream/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil chiMiddleware uses the defaults.
func NewRouter(handler *Handler, authn *auth.Middleware, authzMW *authz.Middleware, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		authn:         authn,
		authz:         authzMW,
		chiMiddleware: chiMW,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// ========================
	// Authentication Endpoints
	// ========================
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.With(router.chiMiddleware.RateLimitAuth()).Post("/register", h.Register)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", h.Login)
		r.With(router.chiMiddleware.RateLimitGuest()).Post("/guest", h.Guest)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.authn.Authenticate)
			r.Use(router.authz.AuthorizeRequest)
			r.Get("/me", h.Me)
			r.Post("/logout", h.Logout)
		})
	})

	// ========================
	// Core API Endpoints
	// ========================
	// Every route requires a token; casbin limits guests to the TMDB
	// proxy and popular lists, and RequireSelf pins {userId} to the caller.
	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.Compression))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.authn.Authenticate)
		r.Use(router.authz.AuthorizeRequest)

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Use(router.authn.RequireSelf)
			r.Get("/", h.GetUser)
			r.Put("/preferences", h.UpdatePreferences)
			r.Delete("/", h.DeleteUser)
		})

		r.Route("/calendar/{userId}", func(r chi.Router) {
			r.Use(router.authn.RequireSelf)
			r.Get("/events", h.ListEvents)
			r.Post("/events", h.AddEvent)
			r.Get("/events/{eventId}", h.GetEvent)
			r.Put("/events/{eventId}", h.UpdateEvent)
			r.Delete("/events/{eventId}", h.DeleteEvent)
			r.Get("/events/{eventId}/shares", h.EventShares)
			r.Post("/events/{eventId}/shares", h.ShareEvent)
			r.Get("/pending-invites", h.PendingInvites)
			r.Get("/shared-events", h.SharedEvents)
			r.Put("/shared-events/{id}/respond", h.RespondToInvite)
			r.Delete("/shared-events/{id}", h.RemoveShare)
		})

		r.Route("/friends/{userId}", func(r chi.Router) {
			r.Use(router.authn.RequireSelf)
			r.Get("/", h.ListFriends)
			r.Get("/pending", h.PendingFriendRequests)
			r.Get("/sent", h.SentFriendRequests)
			r.Get("/search", h.SearchUsers)
			r.Post("/requests", h.SendFriendRequest)
			r.Post("/requests/{friendId}/accept", h.AcceptFriendRequest)
			r.Delete("/{friendId}", h.RemoveFriend)
		})

		r.Route("/messages/{userId}", func(r chi.Router) {
			r.Use(router.authn.RequireSelf)
			r.Post("/", h.SendMessage)
			r.Get("/conversations/{friendId}", h.Conversation)
			r.Get("/since/{seq}", h.MessagesSince)
			r.Get("/unread", h.UnreadCounts)
			r.Patch("/read/{friendId}", h.MarkRead)
			r.Delete("/{messageId}", h.DeleteMessage)
		})

		r.Route("/media-status/{userId}", func(r chi.Router) {
			r.Use(router.authn.RequireSelf)
			r.Get("/", h.ListMediaStatuses)
			r.Post("/", h.SaveMediaStatus)
			r.Put("/{id}", h.UpdateMediaStatus)
			r.Delete("/{id}", h.DeleteMediaStatus)
		})

		r.Route("/tmdb", func(r chi.Router) {
			r.Get("/search", h.SearchTMDB)
			r.Get("/popular-releases", h.PopularReleases)
			r.Get("/{mediaType}/{id}", h.MediaDetails)
			r.Get("/{mediaType}/{id}/similar", h.SimilarMedia)
			r.Get("/{mediaType}/{id}/trailer", h.Trailer)
			r.Get("/{mediaType}/{id}/providers", h.WatchProviders)
		})

		r.Get("/recommendations/popular", h.PopularRecommendations)
		r.With(router.authn.RequireSelf).Get("/recommendations/{userId}", h.Recommendations)

		r.Post("/interactions", h.RecordInteraction)
		r.With(router.authn.RequireSelf).Get("/interactions/{userId}", h.ListInteractions)
	})

	// ========================
	// Real-time
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitWebSocket())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.authn.Authenticate)
		r.Use(router.authz.AuthorizeRequest)
		r.Get("/ws", h.WebSocket)
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
