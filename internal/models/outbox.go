// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Bus topics an outbox row can target.
const (
	TopicRealtime = "realtime"
	TopicPush     = "push"
	TopicEmail    = "email"
)

// Realtime event names emitted to websocket rooms.
const (
	EvtCalendarEventUpdated    = "calendar_event_updated"
	EvtCalendarEventRemoved    = "calendar_event_removed"
	EvtReceiveCalendarInvite   = "receive_calendar_invite"
	EvtCalendarInviteResponded = "calendar_invite_responded"
	EvtReceiveFriendRequest    = "receive_friend_request"
	EvtFriendRequestAccepted   = "friend_request_accepted"
	EvtReceiveMessage          = "receive_message"
	EvtEventReminder           = "event_reminder"
)

// OutboxEntry is a side effect recorded in the same transaction as the state
// change that caused it.
type OutboxEntry struct {
	ID          int64
	Topic       string
	Room        string
	Event       string
	UserID      int64
	Payload     json.RawMessage
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// Envelope is the bus message body built from an OutboxEntry.
type Envelope struct {
	ID      int64           `json:"id"`
	Topic   string          `json:"topic"`
	Room    string          `json:"room,omitempty"`
	Event   string          `json:"event"`
	UserID  int64           `json:"userId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// NewRealtime builds a realtime outbox entry for a room.
func NewRealtime(room, event string, payload interface{}) (OutboxEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OutboxEntry{}, err
	}
	return OutboxEntry{Topic: TopicRealtime, Room: room, Event: event, Payload: raw}, nil
}

// PushNotification is the payload of a push outbox entry.
type PushNotification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// NewPush builds a push outbox entry addressed to a user.
func NewPush(userID int64, n PushNotification) (OutboxEntry, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return OutboxEntry{}, err
	}
	return OutboxEntry{Topic: TopicPush, Event: "push", UserID: userID, Payload: raw}, nil
}

// EmailMessage is the payload of an email outbox entry.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// NewEmail builds an email outbox entry.
func NewEmail(userID int64, m EmailMessage) (OutboxEntry, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return OutboxEntry{}, err
	}
	return OutboxEntry{Topic: TopicEmail, Event: "email", UserID: userID, Payload: raw}, nil
}
