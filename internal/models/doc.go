// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package models defines the records shared by storage, services and the API.

Model groups:

  - User, Preferences, UserSummary: accounts and notification settings
  - Event, CalendarInvite, InviteView: personal and shared calendar entries
  - Friendship, FriendView, Message, UnreadCount: the social graph and chat
  - MediaStatus, Interaction: per-title watch state and like/dislike history
  - OutboxEntry, Envelope: durable side effects and their bus form

Friendships are stored once per pair with (UserLow, UserHigh) from
CanonicalPair. Realtime rooms are named by UserRoom and ChatRoom and are the
same strings the websocket hub joins clients to.

All timestamps are UTC. User.Location converts for display and digests.
*/
package models
