// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Request bodies and query structs validated with go-playground/validator.
// Service inputs that already carry validate tags (auth.RegisterInput,
// media.SaveInput, models.Preferences) are decoded directly.

package api

// ShareEventRequest is the body of POST .../events/{eventId}/shares.
type ShareEventRequest struct {
	FriendIDs []int64 `json:"friendIds" validate:"max=100,dive,gt=0"`
}

// RespondInviteRequest is the body of PUT .../shared-events/{id}/respond.
type RespondInviteRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

// FriendRequest is the body of POST /api/friends/{userId}/requests.
type FriendRequest struct {
	FriendID int64 `json:"friendId" validate:"required,gt=0"`
}

// SendMessageRequest is the body of POST /api/messages/{userId}.
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiverId" validate:"required,gt=0"`
	Text       string `json:"text" validate:"required"`
	ClientID   string `json:"clientId" validate:"omitempty,max=64"`
}

// InteractionRequest is the body of POST /api/interactions. Interaction is
// 1 for a like and 0 for a dislike.
type InteractionRequest struct {
	MediaID     int64  `json:"mediaId" validate:"required,gt=0"`
	MediaType   string `json:"mediaType" validate:"required,oneof=movie tv"`
	Interaction *int   `json:"interaction" validate:"required,oneof=0 1"`
}

// SearchRequest holds the validated query of GET /api/tmdb/search.
type SearchRequest struct {
	Query string `validate:"required,max=200"`
	Page  int    `validate:"min=1,max=500"`
}

// PageRequest holds a validated TMDB page number.
type PageRequest struct {
	Page int `validate:"min=1,max=500"`
}

// ConversationRequest holds the validated query of a conversation page.
type ConversationRequest struct {
	Before int64 `validate:"min=0"`
	Limit  int   `validate:"min=1,max=200"`
}

// UserSearchRequest holds the validated query of a user search.
type UserSearchRequest struct {
	Query string `validate:"required,min=1,max=100"`
}
