// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"net/http"

	"github.com/tomtom215/nextstream/internal/calendar"
)

// ListEvents returns the caller's own events.
//
// @Summary List calendar events
// @Tags calendar
// @Produce json
// @Param userId path int true "User ID"
// @Param tz query string false "IANA timezone for formatting; defaults to the user's zone"
// @Success 200 {object} APIResponse{data=[]models.EventView}
// @Router /calendar/{userId}/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	events, err := h.calendar.ListEvents(r.Context(), userID, requestTimezone(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(events)
}

// GetEvent returns one event the caller owns or was invited to.
//
// @Summary Get a calendar event
// @Tags calendar
// @Produce json
// @Param userId path int true "User ID"
// @Param eventId path int true "Event ID"
// @Success 200 {object} APIResponse{data=models.EventView}
// @Failure 404 {object} APIResponse
// @Router /calendar/{userId}/events/{eventId} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	event, err := h.calendar.GetEvent(r.Context(), userID, eventID, requestTimezone(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(event)
}

// AddEvent creates an event. Start and end are interpreted in the body's
// timezone unless they carry an offset.
//
// @Summary Add a calendar event
// @Tags calendar
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param body body calendar.EventInput true "Event"
// @Success 201 {object} APIResponse{data=models.EventView}
// @Failure 400 {object} APIResponse
// @Router /calendar/{userId}/events [post]
func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var in calendar.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	event, err := h.calendar.AddEvent(r.Context(), userID, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(event)
}

// UpdateEvent changes the fields present in the body. Only the owner may
// update.
//
// @Summary Update a calendar event
// @Tags calendar
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param eventId path int true "Event ID"
// @Param body body calendar.EventInput true "Changed fields"
// @Success 200 {object} APIResponse{data=models.EventView}
// @Failure 403 {object} APIResponse
// @Router /calendar/{userId}/events/{eventId} [put]
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	var in calendar.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	event, err := h.calendar.UpdateEvent(r.Context(), userID, eventID, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(event)
}

// DeleteEvent deletes an owned event with its invites. An invitee
// deleting a shared event gets 403.
//
// @Summary Delete a calendar event
// @Tags calendar
// @Param userId path int true "User ID"
// @Param eventId path int true "Event ID"
// @Success 204
// @Failure 403 {object} APIResponse
// @Router /calendar/{userId}/events/{eventId} [delete]
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	if err := h.calendar.DeleteEvent(r.Context(), userID, eventID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// EventShares lists who an owned event was shared with.
//
// @Summary List an event's invitees
// @Tags calendar
// @Produce json
// @Param userId path int true "User ID"
// @Param eventId path int true "Event ID"
// @Success 200 {object} APIResponse{data=[]sharing.Share}
// @Router /calendar/{userId}/events/{eventId}/shares [get]
func (h *Handler) EventShares(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	shares, err := h.sharing.EventShares(r.Context(), userID, eventID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(shares)
}

// ShareEvent invites friends to an owned event.
//
// @Summary Share an event with friends
// @Tags calendar
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param eventId path int true "Event ID"
// @Param body body ShareEventRequest true "Friends to invite"
// @Success 201 {object} APIResponse{data=[]models.InviteView}
// @Failure 400 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /calendar/{userId}/events/{eventId}/shares [post]
func (h *Handler) ShareEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	var req ShareEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	invites, err := h.sharing.ShareEvent(r.Context(), eventID, userID, req.FriendIDs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(invites)
}

// PendingInvites lists invites awaiting the caller's answer.
//
// @Summary Pending calendar invites
// @Tags calendar
// @Produce json
// @Param userId path int true "User ID"
// @Param tz query string false "IANA timezone"
// @Success 200 {object} APIResponse{data=[]models.InviteView}
// @Router /calendar/{userId}/pending-invites [get]
func (h *Handler) PendingInvites(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	invites, err := h.sharing.PendingInvites(r.Context(), userID, requestTimezone(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(invites)
}

// SharedEvents lists accepted invites.
//
// @Summary Accepted shared events
// @Tags calendar
// @Produce json
// @Param userId path int true "User ID"
// @Param tz query string false "IANA timezone"
// @Success 200 {object} APIResponse{data=[]models.InviteView}
// @Router /calendar/{userId}/shared-events [get]
func (h *Handler) SharedEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	invites, err := h.sharing.SharedEvents(r.Context(), userID, requestTimezone(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(invites)
}

// RespondToInvite accepts or declines an invite.
//
// @Summary Answer a calendar invite
// @Tags calendar
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param id path int true "Invite ID"
// @Param body body RespondInviteRequest true "Answer"
// @Success 200 {object} APIResponse{data=sharing.Response}
// @Failure 409 {object} APIResponse
// @Router /calendar/{userId}/shared-events/{id}/respond [put]
func (h *Handler) RespondToInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	inviteID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req RespondInviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.sharing.RespondToInvite(r.Context(), userID, inviteID, *req.Accepted)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(resp)
}

// RemoveShare lets the inviter withdraw an invite.
//
// @Summary Withdraw a share
// @Tags calendar
// @Param userId path int true "User ID"
// @Param id path int true "Invite ID"
// @Success 204
// @Router /calendar/{userId}/shared-events/{id} [delete]
func (h *Handler) RemoveShare(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	inviteID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.sharing.RemoveShare(r.Context(), userID, inviteID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
