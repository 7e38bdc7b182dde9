// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package models defines the NextStream domain types shared by the store,
// the services and the HTTP/WebSocket layers.
package models

import (
	"strconv"
	"time"
)

// Notification lookahead presets stored in users.notification_time.
const (
	NotifyNone   = "none"
	NotifyCustom = "custom"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	Timezone           string     `json:"timezone"`
	NotificationTime   string     `json:"notificationTime"`
	CustomNotifyHours  int        `json:"customNotificationHours"`
	CustomNotifyMins   int        `json:"customNotificationMinutes"`
	EmailNotifications bool       `json:"emailNotifications"`
	ReminderEmails     bool       `json:"reminderEmails"`
	PushToken          string     `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	DeletedAt          *time.Time `json:"-"`
}

// Lookahead returns how far ahead of an event the user wants to be notified.
// Zero means notifications are off.
func (u *User) Lookahead() time.Duration {
	switch u.NotificationTime {
	case "", NotifyNone:
		return 0
	case NotifyCustom:
		return time.Duration(u.CustomNotifyHours)*time.Hour + time.Duration(u.CustomNotifyMins)*time.Minute
	default:
		mins, err := strconv.Atoi(u.NotificationTime)
		if err != nil || mins < 0 {
			return 0
		}
		return time.Duration(mins) * time.Minute
	}
}

// Location resolves the user's timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UserSummary is the public projection used in friend lists and invites.
type UserSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Preferences is the mutable notification/timezone subset of a user.
type Preferences struct {
	Timezone           *string `json:"timezone" validate:"omitempty,timezone"`
	NotificationTime   *string `json:"notificationTime" validate:"omitempty,oneof=none 5 15 30 60 1440 custom"`
	CustomNotifyHours  *int    `json:"customNotificationHours" validate:"omitempty,min=0,max=168"`
	CustomNotifyMins   *int    `json:"customNotificationMinutes" validate:"omitempty,min=0,max=59"`
	EmailNotifications *bool   `json:"emailNotifications"`
	ReminderEmails     *bool   `json:"reminderEmails"`
	PushToken          *string `json:"pushToken" validate:"omitempty,max=512"`
}
