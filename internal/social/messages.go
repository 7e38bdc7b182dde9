// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tomtom215/nextstream/internal/database"
	"github.com/tomtom215/nextstream/internal/models"
	"github.com/tomtom215/nextstream/internal/outbox"
)

// SendResult is a stored message. Duplicate is set when the client id was
// already used by the sender; nothing was stored or emitted in that case.
type SendResult struct {
	Message   *models.Message `json:"message"`
	Duplicate bool            `json:"duplicate"`
}

// Send stores a message to a friend and queues receive_message to the chat
// room of the pair. A message without a client id gets a generated one.
func (s *Service) Send(ctx context.Context, senderID, receiverID int64, text, clientID string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		return nil, ErrMessageTooLong
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}

	var res SendResult
	err := s.db.WithTx(ctx, func(q *database.Queries) error {
		prev, err := q.GetMessageByClientID(ctx, senderID, clientID)
		if err == nil {
			res = SendResult{Message: prev, Duplicate: true}
			return nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("check client id: %w", err)
		}

		ok, err := areFriends(ctx, q, senderID, receiverID)
		if err != nil {
			return fmt.Errorf("check friendship: %w", err)
		}
		if !ok {
			return ErrNotFriends
		}

		m := &models.Message{SenderID: senderID, ReceiverID: receiverID, Text: text, ClientID: clientID}
		if err := q.InsertMessage(ctx, m); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		res = SendResult{Message: m}

		var b outbox.Batch
		b.Realtime(models.ChatRoom(senderID, receiverID), models.EvtReceiveMessage, m)
		return b.Write(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		s.logger.Debug().Int64("sender_id", senderID).Str("client_id", clientID).Msg("duplicate message dropped")
		return &res, nil
	}
	s.relay.Kick()
	return &res, nil
}

// Conversation returns up to limit messages between userID and friendID
// with a sequence below before (0 for the latest), oldest first.
func (s *Service) Conversation(ctx context.Context, userID, friendID, before int64, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.db.Conversation(ctx, userID, friendID, before, limit)
}

// Since returns up to maxReplay messages sent or received by userID with a
// sequence strictly greater than seq, ascending. Callers page by passing the
// last id back in.
func (s *Service) Since(ctx context.Context, userID, seq int64) ([]*models.Message, error) {
	if seq < 0 {
		seq = 0
	}
	return s.db.MessagesSince(ctx, userID, seq, maxReplay)
}

// MarkRead flags every message from friendID to userID as read and returns
// how many changed.
func (s *Service) MarkRead(ctx context.Context, userID, friendID int64) (int64, error) {
	return s.db.MarkConversationRead(ctx, userID, friendID)
}

// UnreadCounts returns unread message counts per sender.
func (s *Service) UnreadCounts(ctx context.Context, userID int64) ([]models.UnreadCount, error) {
	return s.db.UnreadCounts(ctx, userID)
}

// Delete removes a message. Only its sender may delete it.
func (s *Service) Delete(ctx context.Context, userID, messageID int64) error {
	m, err := s.db.GetMessage(ctx, messageID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("load message %d: %w", messageID, err)
	}
	if m.SenderID != userID {
		return ErrForbidden
	}
	if err := s.db.DeleteMessage(ctx, messageID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
