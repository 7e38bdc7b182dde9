// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/nextstream/internal/auth"
	"github.com/tomtom215/nextstream/internal/calendar"
	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/media"
	"github.com/tomtom215/nextstream/internal/sharing"
	"github.com/tomtom215/nextstream/internal/social"
	"github.com/tomtom215/nextstream/internal/tmdb"
	"github.com/tomtom215/nextstream/internal/validation"
)

// errorMapping ties a service sentinel to its HTTP status. The sentinel's
// own text is the client message.
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	// 400
	{calendar.ErrInvalidEventType, http.StatusBadRequest, ErrCodeBadRequest},
	{calendar.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{calendar.ErrInvalidTimezone, http.StatusBadRequest, ErrCodeBadRequest},
	{sharing.ErrNoFriends, http.StatusBadRequest, ErrCodeBadRequest},
	{sharing.ErrNotFriends, http.StatusBadRequest, ErrCodeBadRequest},
	{social.ErrSelfRequest, http.StatusBadRequest, ErrCodeBadRequest},
	{social.ErrEmptyMessage, http.StatusBadRequest, ErrCodeBadRequest},
	{social.ErrMessageTooLong, http.StatusBadRequest, ErrCodeBadRequest},
	{media.ErrInvalidStatus, http.StatusBadRequest, ErrCodeBadRequest},
	{media.ErrInvalidMediaType, http.StatusBadRequest, ErrCodeBadRequest},
	{media.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},

	// 401
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},

	// 403
	{calendar.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{calendar.ErrSharedEvent, http.StatusForbidden, ErrCodeForbidden},
	{sharing.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{social.ErrNotAddressee, http.StatusForbidden, ErrCodeForbidden},
	{social.ErrNotFriends, http.StatusForbidden, ErrCodeForbidden},
	{social.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},

	// 404
	{calendar.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{sharing.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{sharing.ErrEventNotFound, http.StatusNotFound, ErrCodeNotFound},
	{social.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{social.ErrRequestNotFound, http.StatusNotFound, ErrCodeNotFound},
	{social.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound},
	{media.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{tmdb.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{database.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},

	// 409
	{sharing.ErrAlreadyShared, http.StatusConflict, ErrCodeConflict},
	{sharing.ErrAlreadyAnswered, http.StatusConflict, ErrCodeConflict},
	{social.ErrAlreadyRequested, http.StatusConflict, ErrCodeConflict},
	{social.ErrAlreadyFriends, http.StatusConflict, ErrCodeConflict},
	{auth.ErrUserExists, http.StatusConflict, ErrCodeConflict},
}

// respondServiceError maps err onto the HTTP error taxonomy. Unknown errors
// are logged and answered with a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			rw.Error(m.status, m.code, m.err.Error())
			return
		}
	}

	var statusErr *tmdb.StatusError
	if errors.Is(err, tmdb.ErrUnavailable) || errors.As(err, &statusErr) {
		rw.ExternalServiceError("tmdb", err)
		return
	}

	if errors.Is(err, context.Canceled) {
		logging.Ctx(r.Context()).Debug().Str("path", sanitizeLogValue(r.URL.Path)).Msg("Request canceled by client")
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "request canceled")
		return
	}

	logging.Ctx(r.Context()).Error().Err(err).
		Str("method", r.Method).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg("Request failed")
	rw.InternalError("An internal error occurred")
}
