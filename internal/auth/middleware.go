// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
)

// ErrorWriter renders an authentication failure. The api package supplies
// one that writes the standard response envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// UserIDParam is the chi route parameter checked by RequireSelf.
const UserIDParam = "userId"

// Middleware authenticates requests from session cookies or a bearer token.
type Middleware struct {
	jwtManager *JWTManager
	onError    ErrorWriter
}

// NewMiddleware creates the authentication middleware. A nil onError falls
// back to http.Error.
func NewMiddleware(jwtManager *JWTManager, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{jwtManager: jwtManager, onError: onError}
}

// Authenticate resolves the token cookie, then the guestToken cookie, then an
// Authorization bearer header. The first credential present decides: an
// invalid one is rejected without trying the rest.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, source, ok := extractToken(r)
		if !ok {
			metrics.AuthAttempts.WithLabelValues("token", "missing").Inc()
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			metrics.AuthAttempts.WithLabelValues(source, "invalid").Inc()
			logging.Ctx(r.Context()).Debug().Err(err).Str("source", source).Msg("Token validation failed")
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), SubjectFromClaims(claims))))
	})
}

// RequireUser rejects guests. It must run after Authenticate.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			m.onError(w, r, http.StatusForbidden, "FORBIDDEN", "an account is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelf rejects a request whose {userId} route parameter differs from
// the authenticated user. Routes without the parameter pass through.
func (m *Middleware) RequireSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, UserIDParam)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			m.onError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id")
			return
		}
		uid, ok := UserIDFromContext(r.Context())
		if !ok || uid != id {
			m.onError(w, r, http.StatusForbidden, "FORBIDDEN", "cannot access another user's resources")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken returns the first credential present and where it came from.
func extractToken(r *http.Request) (token, source string, ok bool) {
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, "cookie", true
	}
	if c, err := r.Cookie(GuestCookie); err == nil && c.Value != "" {
		return c.Value, "guest_cookie", true
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", "", false
	}
	return strings.TrimSpace(parts[1]), "bearer", true
}
