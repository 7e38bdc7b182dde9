// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/nextstream/internal/auth"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
)

// MeResponse describes the current caller.
type MeResponse struct {
	Role    string       `json:"role"`
	Guest   bool         `json:"guest"`
	User    *models.User `json:"user,omitempty"`
	Expires string       `json:"expiresAt,omitempty"`
}

// Register creates an account and sets the token cookie.
//
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body auth.RegisterInput true "New account"
// @Success 201 {object} APIResponse{data=auth.Session}
// @Failure 400 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	session, err := h.auth.Register(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.cookies.Set(w, auth.TokenCookie, session.Token, session.Expires)
	NewResponseWriter(w, r).Created(session)
}

// Login checks credentials and sets the token cookie.
//
// @Summary Log in with username or email
// @Tags auth
// @Accept json
// @Produce json
// @Param body body auth.LoginInput true "Credentials"
// @Success 200 {object} APIResponse{data=auth.Session}
// @Failure 401 {object} APIResponse
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if !decodeJSON(w, r, &in) {
		return
	}
	session, err := h.auth.Login(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.cookies.Set(w, auth.TokenCookie, session.Token, session.Expires)
	NewResponseWriter(w, r).Success(session)
}

// Guest issues a guest token cookie.
//
// @Summary Browse as a guest
// @Tags auth
// @Produce json
// @Success 200 {object} APIResponse{data=auth.Session}
// @Router /auth/guest [post]
func (h *Handler) Guest(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.Guest(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.cookies.Set(w, auth.GuestCookie, session.Token, session.Expires)
	NewResponseWriter(w, r).Success(session)
}

// Logout clears both session cookies.
//
// @Summary Log out
// @Tags auth
// @Success 204
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	if s, ok := auth.SubjectFromContext(r.Context()); ok {
		logging.Ctx(r.Context()).Debug().Str("role", s.Role).Msg("Session cleared")
	}
	NewResponseWriter(w, r).NoContent()
}

// Me returns the authenticated caller.
//
// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} APIResponse{data=MeResponse}
// @Failure 401 {object} APIResponse
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("authentication required")
		return
	}
	user, err := h.auth.Me(r.Context(), subject)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	resp := MeResponse{Role: subject.Role, Guest: subject.Guest, User: user}
	if !subject.Expires.IsZero() {
		resp.Expires = subject.Expires.UTC().Format(time.RFC3339)
	}
	NewResponseWriter(w, r).Success(resp)
}
