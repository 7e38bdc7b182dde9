// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

/*
Package websocket provides the real-time layer: rooms, typing indicators,
chat delivery and calendar/friend notifications.

Key Components:

  - Hub: owns every connection and room, fans messages out and applies the
    join rule
  - Client: one authenticated connection with read and write goroutines
  - Message: the {type, data} frame used in both directions

Rooms:

Every connection joins the room named by its user id ("42"). Two friends
share the chat room "min_max" ("7_42"). A client may only join rooms that
contain its own id. Emitting to a chat room also reaches both users' personal
rooms; each connection receives a given message once.

Delivery:

State changes are written to the outbox by the services and published on the
"realtime" bus topic. The hub subscribes to that topic and emits each
envelope to its room. Envelope ids are remembered for a while so a redelivery
after a crash or NATS redelivery is dropped instead of shown twice.

Inbound events:

  - join_room, leave_room {room}
  - typing, stop_typing {room}: forwarded to the room except the sender;
    typing expires after the configured idle window and the hub emits
    stop_typing itself
  - send_message {receiverId, text, clientId}: stored through the message
    service; a repeated clientId stores and emits nothing
  - respond_calendar_invite {inviteId, accepted}
  - new_calendar_invite, new_friend_request {senderId, receiverId, ...}:
    relayed to the receiver as receive_calendar_invite/receive_friend_request
    when senderId is the connection's user
  - sync {since}: replays receive_message for every message after since,
    then sync_complete {seq}
  - ping: answered with pong

A failing handler answers the originating connection with error_<event>
{message}. Nothing is retried.

Each client has two goroutines:
  - readPump: reads frames and dispatches inbound events
  - writePump: writes queued frames and keeps the connection alive with pings

A client whose send buffer is full is disconnected rather than allowed to
stall the hub.
*/
package websocket
