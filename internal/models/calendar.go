// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package models

import "time"

// Event types accepted by the calendar.
const (
	EventTypeMovie   = "movie"
	EventTypeTV      = "tv"
	EventTypeUnknown = "unknown"
)

// ValidEventType reports whether t is one of movie, tv, unknown.
func ValidEventType(t string) bool {
	switch t {
	case EventTypeMovie, EventTypeTV, EventTypeUnknown:
		return true
	}
	return false
}

// Event is a calendar entry owned by one user. Start and End are stored in UTC.
// End is allowed to precede Start.
type Event struct {
	ID         int64
	UserID     int64
	Title      string
	Start      time.Time
	End        *time.Time
	EventType  string
	MediaID    *int64
	MediaType  string
	NotifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EventView is an Event formatted for a client timezone.
type EventView struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end,omitempty"`
	EventType string `json:"eventType"`
	MediaID   *int64 `json:"mediaId,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	IsShared  bool   `json:"isShared"`
	Editable  bool   `json:"editable"`
}

// CalendarInvite links an Event to an invited friend. IsAccepted is nil while
// pending and true once accepted; declined invites are deleted.
type CalendarInvite struct {
	ID         int64
	EventID    int64
	UserID     int64
	CreatedBy  int64
	IsAccepted *bool
	IsShared   bool
	CreatedAt  time.Time
}

// Pending reports whether the invitee has not answered yet.
func (c *CalendarInvite) Pending() bool {
	return c.IsAccepted == nil
}

// InviteView joins an invite with its event and inviter for listing.
type InviteView struct {
	ID          int64  `json:"id"`
	EventID     int64  `json:"eventId"`
	EventTitle  string `json:"eventTitle"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	EventType   string `json:"eventType"`
	CreatedBy   int64  `json:"createdBy"`
	InviterName string `json:"inviterName"`
	UserID      int64  `json:"userId"`
	IsAccepted  *bool  `json:"isAccepted"`
	Editable    bool   `json:"editable"`
}

// InviteRow is the raw joined row the store returns; services format it.
type InviteRow struct {
	Invite      CalendarInvite
	EventTitle  string
	Start       time.Time
	End         *time.Time
	EventType   string
	InviterName string
	InviteeName string
}
