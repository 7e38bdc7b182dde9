// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package models

import (
	"fmt"
	"time"
)

// Friendship is stored once per pair with UserLow < UserHigh.
type Friendship struct {
	UserLow     int64     `json:"-"`
	UserHigh    int64     `json:"-"`
	RequestedBy int64     `json:"requestedBy"`
	IsAccepted  bool      `json:"isAccepted"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CanonicalPair orders two user ids as (min, max).
func CanonicalPair(a, b int64) (low, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Other returns the member of the pair that is not userID.
func (f *Friendship) Other(userID int64) int64 {
	if f.UserLow == userID {
		return f.UserHigh
	}
	return f.UserLow
}

// FriendView is a friend or request as seen by one side.
type FriendView struct {
	UserSummary
	RequestedBy int64     `json:"requestedBy"`
	IsAccepted  bool      `json:"isAccepted"`
	Since       time.Time `json:"since"`
}

// Message is one chat line. ID doubles as the global sequence number used for
// reconnect replay.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Text       string    `json:"text"`
	ClientID   string    `json:"clientId"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChatRoom names the composite room shared by two users.
func ChatRoom(a, b int64) string {
	low, high := CanonicalPair(a, b)
	return fmt.Sprintf("%d_%d", low, high)
}

// UserRoom names the personal room of a user.
func UserRoom(id int64) string {
	return fmt.Sprintf("%d", id)
}

// UnreadCount is the number of unread messages from one sender.
type UnreadCount struct {
	SenderID int64 `json:"senderId"`
	Count    int   `json:"count"`
}
