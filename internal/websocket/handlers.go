// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextstream/internal/metrics"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/sharing"
	"github.com/tomtom215/nextstream/internal/social"
)

var (
	errForbiddenRoom = errors.New("cannot join this room")
	errClientGone    = errors.New("client disconnected")
)

// Inbound is one frame received from a client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type roomData struct {
	Room string `json:"room"`
}

type typingData struct {
	Room   string `json:"room"`
	UserID int64  `json:"userId"`
}

type sendMessageData struct {
	ReceiverID int64  `json:"receiverId"`
	Text       string `json:"text"`
	ClientID   string `json:"clientId"`
}

type respondInviteData struct {
	InviteID int64 `json:"inviteId"`
	Accepted bool  `json:"accepted"`
}

type relayData struct {
	SenderID   int64 `json:"senderId"`
	ReceiverID int64 `json:"receiverId"`
}

type syncData struct {
	Since int64 `json:"since"`
}

type syncCompleteData struct {
	Seq int64 `json:"seq"`
}

type errorData struct {
	Message string `json:"message"`
}

// relays maps client-originated notifications to the event the receiver sees.
var relays = map[string]string{
	MessageTypeNewInvite:        models.EvtReceiveCalendarInvite,
	MessageTypeNewFriendRequest: models.EvtReceiveFriendRequest,
}

// publicErrors are returned to clients verbatim; anything else is reported
// as an internal error.
var publicErrors = []error{
	errForbiddenRoom,
	social.ErrNotFriends,
	social.ErrEmptyMessage,
	social.ErrMessageTooLong,
	social.ErrUserNotFound,
	sharing.ErrNotFound,
	sharing.ErrAlreadyAnswered,
}

// HandleInbound dispatches one inbound frame for c. It runs on the client's
// read goroutine.
func (h *Hub) HandleInbound(c *Client, in Inbound) {
	metrics.WSMessagesReceived.WithLabelValues(in.Type).Inc()

	var err error
	switch in.Type {
	case MessageTypeJoinRoom:
		err = h.handleJoin(c, in.Data)
	case MessageTypeLeaveRoom:
		var d roomData
		if err = decode(in.Data, &d); err == nil {
			h.Leave(c, d.Room)
		}
	case MessageTypeTyping:
		err = h.handleTyping(c, in.Data, true)
	case MessageTypeStopTyping:
		err = h.handleTyping(c, in.Data, false)
	case MessageTypeSendMessage:
		err = h.handleSendMessage(c, in.Data)
	case MessageTypeRespondInvite:
		err = h.handleRespondInvite(c, in.Data)
	case MessageTypeNewInvite, MessageTypeNewFriendRequest:
		err = h.handleRelay(c, in.Type, in.Data)
	case MessageTypeSync:
		err = h.handleSync(c, in.Data)
	case MessageTypePing:
		h.reply(c, Message{Type: MessageTypePong, Data: struct{}{}})
	default:
		metrics.WSErrors.WithLabelValues("unknown_event").Inc()
		h.logger.Debug().Str("event", in.Type).Int64("user_id", c.userID).Msg("ignoring unknown websocket event")
	}

	if err != nil && !errors.Is(err, errClientGone) {
		metrics.WSErrors.WithLabelValues("handler").Inc()
		h.logger.Warn().Err(err).Str("event", in.Type).Int64("user_id", c.userID).Msg("websocket handler failed")
		h.reply(c, Message{Type: "error_" + in.Type, Data: errorData{Message: publicMessage(err)}})
	}
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.New("missing data")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.New("malformed data")
	}
	return nil
}

func publicMessage(err error) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	switch err.Error() {
	case "missing data", "malformed data":
		return err.Error()
	}
	return "internal error"
}

func (h *Hub) handleJoin(c *Client, raw json.RawMessage) error {
	var d roomData
	if err := decode(raw, &d); err != nil {
		return err
	}
	if !h.Join(c, d.Room) {
		metrics.WSErrors.WithLabelValues("forbidden_room").Inc()
		return errForbiddenRoom
	}
	return nil
}

func (h *Hub) handleTyping(c *Client, raw json.RawMessage, typing bool) error {
	var d roomData
	if err := decode(raw, &d); err != nil {
		return err
	}
	if !CanJoin(c.userID, d.Room) {
		return errForbiddenRoom
	}

	key := typingKey{room: d.Room, userID: c.userID}
	payload := typingData{Room: d.Room, UserID: c.userID}
	if !typing {
		h.clearTyping(key)
		h.emitExcept(d.Room, c, Message{Type: MessageTypeStopTyping, Data: payload})
		return nil
	}

	h.typingMu.Lock()
	if t, ok := h.typing[key]; ok {
		t.Stop()
	}
	// timer is assigned under typingMu, so the callback reads it only after
	// taking the same lock. A timer replaced by a newer frame finds a
	// different pointer in the map and does nothing.
	var timer *time.Timer
	timer = time.AfterFunc(h.typingTimeout, func() {
		h.typingMu.Lock()
		current := h.typing[key] == timer
		if current {
			delete(h.typing, key)
		}
		h.typingMu.Unlock()
		if current {
			h.emitExcept(key.room, c, Message{Type: MessageTypeStopTyping, Data: payload})
		}
	})
	h.typing[key] = timer
	h.typingMu.Unlock()

	h.emitExcept(d.Room, c, Message{Type: MessageTypeTyping, Data: payload})
	return nil
}

// clearTyping stops and forgets the timer for key and reports whether one
// was pending.
func (h *Hub) clearTyping(key typingKey) bool {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()
	t, ok := h.typing[key]
	if ok {
		t.Stop()
		delete(h.typing, key)
	}
	return ok
}

func (h *Hub) stopTypingFor(userID int64) {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()
	for key, t := range h.typing {
		if key.userID == userID {
			t.Stop()
			delete(h.typing, key)
		}
	}
}

func (h *Hub) stopAllTyping() {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()
	for key, t := range h.typing {
		t.Stop()
		delete(h.typing, key)
	}
}

// handleSendMessage stores the message. The receive_message event reaches
// both users through the outbox, so nothing is emitted here.
func (h *Hub) handleSendMessage(c *Client, raw json.RawMessage) error {
	var d sendMessageData
	if err := decode(raw, &d); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	res, err := h.messages.Send(ctx, c.userID, d.ReceiverID, d.Text, d.ClientID)
	if err != nil {
		return err
	}
	if res.Duplicate {
		h.logger.Debug().Str("client_id", d.ClientID).Int64("user_id", c.userID).Msg("duplicate message ignored")
	}
	h.clearTyping(typingKey{room: models.ChatRoom(c.userID, d.ReceiverID), userID: c.userID})
	return nil
}

func (h *Hub) handleRespondInvite(c *Client, raw json.RawMessage) error {
	var d respondInviteData
	if err := decode(raw, &d); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	_, err := h.invites.RespondToInvite(ctx, c.userID, d.InviteID, d.Accepted)
	return err
}

// handleRelay forwards a client-originated notification to its receiver. It
// is ignored when senderId is not the connection's user.
func (h *Hub) handleRelay(c *Client, event string, raw json.RawMessage) error {
	var d relayData
	if err := decode(raw, &d); err != nil {
		return err
	}
	if d.SenderID != c.userID || d.ReceiverID <= 0 {
		metrics.WSErrors.WithLabelValues("relay_rejected").Inc()
		h.logger.Warn().Int64("user_id", c.userID).Int64("sender_id", d.SenderID).Str("event", event).
			Msg("relay sender does not match connection")
		return nil
	}
	h.tryEnqueue(delivery{room: models.UserRoom(d.ReceiverID), msg: Message{Type: relays[event], Data: raw}})
	return nil
}

// handleSync replays every message after since in order, then sends the
// highest id seen as sync_complete. History is pulled page by page and
// paced against the client's send buffer so a long backlog never trips the
// slow-client drop in fanOut.
func (h *Hub) handleSync(c *Client, raw json.RawMessage) error {
	var d syncData
	if len(raw) > 0 {
		if err := decode(raw, &d); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()

	batch := max(1, h.sendBuffer/4)
	seq := d.Since
	for {
		msgs, err := h.messages.Since(ctx, c.userID, seq)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}
		for i, m := range msgs {
			if i%batch == 0 {
				if err := h.awaitRoom(ctx, c, 2*batch); err != nil {
					return err
				}
			}
			if err := h.enqueue(ctx, delivery{client: c, msg: Message{Type: models.EvtReceiveMessage, Data: m}}); err != nil {
				return err
			}
			seq = max(seq, m.ID)
		}
	}
	if err := h.awaitRoom(ctx, c, 1); err != nil {
		return err
	}
	return h.enqueue(ctx, delivery{client: c, msg: Message{Type: MessageTypeSyncComplete, Data: syncCompleteData{Seq: seq}}})
}

// awaitRoom blocks until c's send buffer has n free slots, capped at its
// capacity. Deliveries still queued for the run loop are not visible here,
// so callers ask for twice the batch they are about to queue.
func (h *Hub) awaitRoom(ctx context.Context, c *Client, n int) error {
	n = min(n, cap(c.send))
	ticker := time.NewTicker(replayPoll)
	defer ticker.Stop()
	for {
		if !h.connected(c) {
			return errClientGone
		}
		if cap(c.send)-len(c.send) >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
