// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package auth

import (
	"context"
	"time"
)

type contextKey string

const subjectContextKey contextKey = "auth-subject"

// Subject is the authenticated caller of a request.
type Subject struct {
	// UserID is zero for guests.
	UserID   int64     `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Guest    bool      `json:"guest"`
	Expires  time.Time `json:"expiresAt"`
}

// SubjectFromClaims converts validated token claims.
func SubjectFromClaims(claims *Claims) *Subject {
	if claims == nil {
		return nil
	}
	s := &Subject{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Guest:    claims.Role == RoleGuest,
	}
	if claims.ExpiresAt != nil {
		s.Expires = claims.ExpiresAt.Time
	}
	return s
}

// WithSubject stores s in ctx.
func WithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// SubjectFromContext returns the subject stored by the Authenticate middleware.
func SubjectFromContext(ctx context.Context) (*Subject, bool) {
	s, ok := ctx.Value(subjectContextKey).(*Subject)
	return s, ok && s != nil
}

// UserIDFromContext returns the caller's user id, or false for guests and
// unauthenticated requests.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	s, ok := SubjectFromContext(ctx)
	if !ok || s.Guest || s.UserID <= 0 {
		return 0, false
	}
	return s.UserID, true
}
