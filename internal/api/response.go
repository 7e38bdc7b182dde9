// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextstream/internal/logging"
)

// APIResponse is the envelope every endpoint answers with. Exactly one of
// Data and Error is set.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError carries a machine-readable Code next to the message shown to
// clients. Details holds per-field validation failures.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIMeta is filled on every response.
type APIMeta struct {
	RequestID  string          `json:"request_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	DurationMs int64           `json:"duration_ms,omitempty"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// PaginationMeta describes one page of a cursor-paged list. NextCursor is
// empty on the last page.
type PaginationMeta struct {
	Count      int    `json:"count"`
	Limit      int    `json:"limit,omitempty"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeExternalServiceFail = "EXTERNAL_SERVICE_FAILED"
)

// ResponseWriter writes envelopes for one request. Construct it at the top
// of a handler so DurationMs covers the handler's work.
type ResponseWriter struct {
	w     http.ResponseWriter
	r     *http.Request
	start time.Time
}

// NewResponseWriter wraps w for r.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r, start: time.Now()}
}

// meta stamps m (or a fresh value) with the request ID and timings.
func (rw *ResponseWriter) meta(m *APIMeta) *APIMeta {
	if m == nil {
		m = &APIMeta{}
	}
	m.RequestID = logging.RequestIDFromContext(rw.r.Context())
	m.Timestamp = time.Now()
	m.DurationMs = time.Since(rw.start).Milliseconds()
	return m
}

func (rw *ResponseWriter) ok(status int, data interface{}, m *APIMeta) {
	rw.send(status, APIResponse{Success: true, Data: data, Meta: rw.meta(m)})
}

func (rw *ResponseWriter) fail(status int, code, message string, details interface{}) {
	m := rw.meta(nil)
	rw.send(status, APIResponse{
		Error: &APIError{Code: code, Message: message, Details: details, RequestID: m.RequestID},
		Meta:  m,
	})
}

func (rw *ResponseWriter) send(status int, body APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(status)
	if err := json.NewEncoder(rw.w).Encode(body); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Success answers 200 with data.
func (rw *ResponseWriter) Success(data interface{}) { rw.ok(http.StatusOK, data, nil) }

// SuccessWithMeta answers 200 with data and caller-supplied metadata.
func (rw *ResponseWriter) SuccessWithMeta(data interface{}, m *APIMeta) {
	rw.ok(http.StatusOK, data, m)
}

// SuccessWithPagination answers 200 with one page of a list.
func (rw *ResponseWriter) SuccessWithPagination(data interface{}, page *PaginationMeta) {
	rw.ok(http.StatusOK, data, &APIMeta{Pagination: page})
}

// Created answers 201 with the new resource.
func (rw *ResponseWriter) Created(data interface{}) { rw.ok(http.StatusCreated, data, nil) }

// NoContent answers 204 with an empty body.
func (rw *ResponseWriter) NoContent() { rw.w.WriteHeader(http.StatusNoContent) }

// Error answers with an error envelope.
func (rw *ResponseWriter) Error(status int, code, message string) {
	rw.fail(status, code, message, nil)
}

func (rw *ResponseWriter) BadRequest(message string) {
	rw.fail(http.StatusBadRequest, ErrCodeBadRequest, message, nil)
}

func (rw *ResponseWriter) Unauthorized(message string) {
	rw.fail(http.StatusUnauthorized, ErrCodeUnauthorized, message, nil)
}

func (rw *ResponseWriter) Forbidden(message string) {
	rw.fail(http.StatusForbidden, ErrCodeForbidden, message, nil)
}

func (rw *ResponseWriter) NotFound(message string) {
	rw.fail(http.StatusNotFound, ErrCodeNotFound, message, nil)
}

func (rw *ResponseWriter) Conflict(message string) {
	rw.fail(http.StatusConflict, ErrCodeConflict, message, nil)
}

func (rw *ResponseWriter) TooManyRequests(message string) {
	rw.fail(http.StatusTooManyRequests, ErrCodeTooManyRequests, message, nil)
}

func (rw *ResponseWriter) InternalError(message string) {
	rw.fail(http.StatusInternalServerError, ErrCodeInternalError, message, nil)
}

func (rw *ResponseWriter) ServiceUnavailable(message string) {
	rw.fail(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, nil)
}

// ValidationError answers 400 with per-field failures in details.
func (rw *ResponseWriter) ValidationError(message string, fields interface{}) {
	rw.fail(http.StatusBadRequest, ErrCodeValidation, message, fields)
}

// DatabaseError answers 500. The cause is logged and never sent to the
// client.
func (rw *ResponseWriter) DatabaseError(err error) {
	logging.Ctx(rw.r.Context()).Error().Err(err).
		Str("path", sanitizeLogValue(rw.r.URL.Path)).
		Msg("Database error")
	rw.fail(http.StatusInternalServerError, ErrCodeDatabaseError, "A database error occurred", nil)
}

// ExternalServiceError answers 502 naming the upstream that failed.
func (rw *ResponseWriter) ExternalServiceError(service string, err error) {
	logging.Ctx(rw.r.Context()).Error().Err(err).Str("service", service).Msg("External service error")
	rw.fail(http.StatusBadGateway, ErrCodeExternalServiceFail, "External service unavailable: "+service, nil)
}

// WriteError matches auth.ErrorWriter so the auth and authz middleware
// answer with the same envelope as handlers.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	NewResponseWriter(w, r).Error(status, code, message)
}
