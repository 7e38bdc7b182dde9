// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"net/http"

	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/models"
)

// GetUser returns the caller's profile.
//
// @Summary Get profile
// @Tags users
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} APIResponse{data=models.User}
// @Router /users/{userId} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	u, err := h.db.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// UpdatePreferences changes the non-null preference fields.
//
// @Summary Update notification and timezone preferences
// @Tags users
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param body body models.Preferences true "Fields to change"
// @Success 200 {object} APIResponse{data=models.User}
// @Failure 400 {object} APIResponse
// @Router /users/{userId}/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var prefs models.Preferences
	if !decodeJSON(w, r, &prefs) {
		return
	}
	if err := h.db.UpdatePreferences(r.Context(), userID, prefs); err != nil {
		respondServiceError(w, r, err)
		return
	}
	u, err := h.db.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// DeleteUser soft-deletes the account and clears its session.
//
// @Summary Delete account
// @Tags users
// @Param userId path int true "User ID"
// @Success 204
// @Router /users/{userId} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	if err := h.db.SoftDeleteUser(r.Context(), userID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Int64("user_id", userID).Msg("User deleted")
	h.cookies.Clear(w)
	NewResponseWriter(w, r).NoContent()
}
