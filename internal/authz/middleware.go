// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package authz

import (
	"net/http"

	"github.com/tomtom215/nextstream/internal/auth"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/metrics"
)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
	onError  auth.ErrorWriter
}

// NewMiddleware creates a new authorization middleware. A nil onError falls
// back to http.Error.
func NewMiddleware(enforcer *Enforcer, onError auth.ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{
		enforcer: enforcer,
		onError:  onError,
	}
}

// AuthorizeRequest checks the subject's role against the request path and
// method. It must run after auth.Middleware.Authenticate.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := auth.SubjectFromContext(r.Context())
		if !ok {
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		allowed, err := m.enforcer.Enforce(subject.Role, r.URL.Path, r.Method)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			m.onError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			return
		}

		if !allowed {
			metrics.AuthzDecisions.WithLabelValues(subject.Role, "deny").Inc()
			logging.Ctx(r.Context()).Debug().
				Str("role", subject.Role).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg("Request denied by policy")
			m.onError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}

		metrics.AuthzDecisions.WithLabelValues(subject.Role, "allow").Inc()
		next.ServeHTTP(w, r)
	})
}
