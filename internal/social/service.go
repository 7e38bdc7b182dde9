// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package social implements friendships and direct messages.
//
// Friendships are stored once per pair under the canonical (min, max) key
// with the requester recorded separately. Messages form a durable log whose
// ids double as sequence numbers, so a reconnecting client can replay
// everything after the last sequence it saw.
package social

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/logging"
	"github.com/tomtom215/nextstream/internal/outbox"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrAlreadyRequested = errors.New("friend request already exists")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotAddressee     = errors.New("only the recipient can accept a friend request")
	ErrNotFriends       = errors.New("messages can only be sent to friends")
	ErrEmptyMessage     = errors.New("message text is required")
	ErrMessageTooLong   = errors.New("message text is too long")
	ErrMessageNotFound  = errors.New("message not found")
	ErrForbidden        = errors.New("not allowed to modify this message")
)

const (
	maxMessageLen      = 2000
	defaultPageSize    = 50
	maxPageSize        = 200
	maxReplay          = 500
	defaultSearchLimit = 20
)

// Service manages friendships and messages.
type Service struct {
	db     *database.DB
	relay  outbox.Kicker
	logger zerolog.Logger
}

// NewService creates the social service.
func NewService(db *database.DB, relay outbox.Kicker) *Service {
	if relay == nil {
		relay = outbox.Nop{}
	}
	return &Service{db: db, relay: relay, logger: logging.WithComponent("social")}
}
