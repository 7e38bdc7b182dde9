// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/nextstream/internal/models"
)

const (
	defaultConversationLimit = 50
	maxSearchResults         = 20
)

// ListFriends returns accepted friends.
//
// @Summary List friends
// @Tags friends
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} APIResponse{data=[]models.FriendView}
// @Router /friends/{userId} [get]
func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	friends, err := h.social.ListFriends(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(friends)
}

// PendingFriendRequests returns requests addressed to the caller.
//
// @Summary Incoming friend requests
// @Tags friends
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} APIResponse{data=[]models.FriendView}
// @Router /friends/{userId}/pending [get]
func (h *Handler) PendingFriendRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	requests, err := h.social.PendingRequests(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(requests)
}

// SentFriendRequests returns the caller's outgoing requests.
//
// @Summary Outgoing friend requests
// @Tags friends
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} APIResponse{data=[]models.FriendView}
// @Router /friends/{userId}/sent [get]
func (h *Handler) SentFriendRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	requests, err := h.social.SentRequests(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(requests)
}

// SearchUsers finds other users by username or name.
//
// @Summary Search users
// @Tags friends
// @Produce json
// @Param userId path int true "User ID"
// @Param q query string true "Search term"
// @Success 200 {object} APIResponse{data=[]models.UserSummary}
// @Router /friends/{userId}/search [get]
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	req := UserSearchRequest{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if !validateRequest(w, r, &req) {
		return
	}
	users, err := h.social.SearchUsers(r.Context(), req.Query, userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if len(users) > maxSearchResults {
		users = users[:maxSearchResults]
	}
	NewResponseWriter(w, r).Success(users)
}

// SendFriendRequest asks another user to be friends.
//
// @Summary Send a friend request
// @Tags friends
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param body body FriendRequest true "Addressee"
// @Success 201 {object} APIResponse{data=models.FriendView}
// @Failure 409 {object} APIResponse
// @Router /friends/{userId}/requests [post]
func (h *Handler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req FriendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.social.SendRequest(r.Context(), userID, req.FriendID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(view)
}

// AcceptFriendRequest accepts a request sent by friendId.
//
// @Summary Accept a friend request
// @Tags friends
// @Produce json
// @Param userId path int true "User ID"
// @Param friendId path int true "Requester ID"
// @Success 200 {object} APIResponse{data=models.FriendView}
// @Failure 403 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /friends/{userId}/requests/{friendId}/accept [post]
func (h *Handler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	friendID, ok := pathID(w, r, "friendId")
	if !ok {
		return
	}
	view, err := h.social.AcceptRequest(r.Context(), userID, friendID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(view)
}

// RemoveFriend unfriends, cancels or rejects, whichever state the pair is in.
//
// @Summary Remove a friend or request
// @Tags friends
// @Param userId path int true "User ID"
// @Param friendId path int true "Other user ID"
// @Success 204
// @Router /friends/{userId}/{friendId} [delete]
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	friendID, ok := pathID(w, r, "friendId")
	if !ok {
		return
	}
	if err := h.social.RemoveFriend(r.Context(), userID, friendID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// Conversation pages backwards through the messages with one friend.
// Pass the returned next_cursor as before to load older messages.
//
// @Summary Conversation history
// @Tags messages
// @Produce json
// @Param userId path int true "User ID"
// @Param friendId path int true "Friend ID"
// @Param before query int false "Return messages with id below this"
// @Param limit query int false "Page size (1-200)"
// @Success 200 {object} APIResponse{data=[]models.Message}
// @Router /messages/{userId}/conversations/{friendId} [get]
func (h *Handler) Conversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	friendID, ok := pathID(w, r, "friendId")
	if !ok {
		return
	}
	req := ConversationRequest{
		Before: getInt64Param(r, "before", 0),
		Limit:  getIntParam(r, "limit", defaultConversationLimit),
	}
	if !validateRequest(w, r, &req) {
		return
	}
	messages, err := h.social.Conversation(r.Context(), userID, friendID, req.Before, req.Limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	page := &PaginationMeta{Count: len(messages), Limit: req.Limit, HasMore: len(messages) == req.Limit}
	if page.HasMore && len(messages) > 0 {
		page.NextCursor = strconv.FormatInt(oldestID(messages), 10)
	}
	NewResponseWriter(w, r).SuccessWithPagination(messages, page)
}

func oldestID(ms []*models.Message) int64 {
	oldest := ms[0].ID
	for _, m := range ms[1:] {
		if m.ID < oldest {
			oldest = m.ID
		}
	}
	return oldest
}

// MessagesSince replays every message involving the caller after seq.
//
// @Summary Replay messages after a sequence number
// @Tags messages
// @Produce json
// @Param userId path int true "User ID"
// @Param seq path int true "Last seen message id"
// @Success 200 {object} APIResponse{data=[]models.Message}
// @Router /messages/{userId}/since/{seq} [get]
func (h *Handler) MessagesSince(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	seq, err := strconv.ParseInt(chi.URLParam(r, "seq"), 10, 64)
	if err != nil || seq < 0 {
		NewResponseWriter(w, r).BadRequest("invalid seq")
		return
	}
	messages, err := h.social.Since(r.Context(), userID, seq)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(messages)
}

// UnreadCounts returns unread counts per sender.
//
// @Summary Unread message counts
// @Tags messages
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} APIResponse{data=[]models.UnreadCount}
// @Router /messages/{userId}/unread [get]
func (h *Handler) UnreadCounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	counts, err := h.social.UnreadCounts(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(counts)
}

// SendMessage stores a message and delivers it to the chat room. A repeated
// clientId returns the stored message without sending it again.
//
// @Summary Send a message
// @Tags messages
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param body body SendMessageRequest true "Message"
// @Success 201 {object} APIResponse{data=models.Message}
// @Success 200 {object} APIResponse{data=models.Message} "duplicate clientId"
// @Failure 403 {object} APIResponse
// @Router /messages/{userId} [post]
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.social.Send(r.Context(), userID, req.ReceiverID, req.Text, req.ClientID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if res.Duplicate {
		NewResponseWriter(w, r).Success(res.Message)
		return
	}
	NewResponseWriter(w, r).Created(res.Message)
}

// MarkRead marks every message from friendId as read.
//
// @Summary Mark a conversation read
// @Tags messages
// @Produce json
// @Param userId path int true "User ID"
// @Param friendId path int true "Friend ID"
// @Success 200 {object} APIResponse{data=map[string]int64}
// @Router /messages/{userId}/read/{friendId} [patch]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	friendID, ok := pathID(w, r, "friendId")
	if !ok {
		return
	}
	n, err := h.social.MarkRead(r.Context(), userID, friendID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]int64{"updated": n})
}

// DeleteMessage deletes a message the caller sent.
//
// @Summary Delete a message
// @Tags messages
// @Param userId path int true "User ID"
// @Param messageId path int true "Message ID"
// @Success 204
// @Failure 403 {object} APIResponse
// @Router /messages/{userId}/{messageId} [delete]
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "messageId")
	if !ok {
		return
	}
	if err := h.social.Delete(r.Context(), userID, messageID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
