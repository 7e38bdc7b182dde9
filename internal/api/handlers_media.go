// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"net/http"

	"github.com/tomtom215/nextstream/internal/media"
)

// ListMediaStatuses returns the caller's watch list.
//
// @Summary List media statuses
// @Tags media-status
// @Produce json
// @Param userId path int true "User ID"
// @Param status query string false "to_watch, scheduled or watched"
// @Success 200 {object} APIResponse{data=[]models.MediaStatus}
// @Router /media-status/{userId} [get]
func (h *Handler) ListMediaStatuses(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	list, err := h.media.List(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(list)
}

// SaveMediaStatus creates or replaces the status of one title.
//
// @Summary Save a media status
// @Tags media-status
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param body body media.SaveInput true "Media status"
// @Success 200 {object} APIResponse{data=models.MediaStatus}
// @Failure 400 {object} APIResponse
// @Router /media-status/{userId} [post]
func (h *Handler) SaveMediaStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var in media.SaveInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.media.Save(r.Context(), userID, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(m)
}

// UpdateMediaStatus changes status, progress, tags or review.
//
// @Summary Update a media status
// @Tags media-status
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param id path int true "Media status ID"
// @Param body body media.UpdateInput true "Changed fields"
// @Success 200 {object} APIResponse{data=models.MediaStatus}
// @Failure 404 {object} APIResponse
// @Router /media-status/{userId}/{id} [put]
func (h *Handler) UpdateMediaStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in media.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.media.UpdateStatus(r.Context(), userID, id, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(m)
}

// DeleteMediaStatus removes a title with its linked events and interactions.
//
// @Summary Delete a media status
// @Tags media-status
// @Param userId path int true "User ID"
// @Param id path int true "Media status ID"
// @Success 204
// @Router /media-status/{userId}/{id} [delete]
func (h *Handler) DeleteMediaStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.media.Delete(r.Context(), userID, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// RecordInteraction stores a like (1) or dislike (0) for the caller.
//
// @Summary Like or dislike a title
// @Tags interactions
// @Accept json
// @Produce json
// @Param body body InteractionRequest true "Interaction"
// @Success 201 {object} APIResponse{data=models.Interaction}
// @Failure 400 {object} APIResponse
// @Router /interactions [post]
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req InteractionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := h.media.RecordInteraction(r.Context(), userID, req.MediaID, req.MediaType, *req.Interaction == 1)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(in)
}

// ListInteractions returns the caller's interactions. latest=true keeps only
// the newest row per title.
//
// @Summary List interactions
// @Tags interactions
// @Produce json
// @Param userId path int true "User ID"
// @Param latest query bool false "Newest interaction per title only"
// @Success 200 {object} APIResponse{data=[]models.Interaction}
// @Router /interactions/{userId} [get]
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	list := h.media.Interactions
	if r.URL.Query().Get("latest") == "true" {
		list = h.media.LatestInteractions
	}
	rows, err := list(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(rows)
}
