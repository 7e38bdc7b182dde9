// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"

	"github.com/tomtom215/nextstream/internal/models"
)

const messageColumns = `id, sender_id, receiver_id, body, client_id, is_read, created_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.Message, error) {
	var m models.Message
	if err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.ClientID, &m.IsRead, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *Queries) listMessages(ctx context.Context, query string, args ...interface{}) ([]*models.Message, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMessage appends to the message log; the generated id is the sequence
// number. A repeated (sender, client_id) yields ErrDuplicate.
func (q *Queries) InsertMessage(ctx context.Context, m *models.Message) error {
	m.CreatedAt = now()
	id, err := q.insertID(ctx, `INSERT INTO messages (sender_id, receiver_id, body, client_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, m.SenderID, m.ReceiverID, m.Text, m.ClientID, false, m.CreatedAt)
	if err != nil {
		return insertErr(err)
	}
	m.ID = id
	return nil
}

// GetMessageByClientID finds a message by its sender-scoped client id.
func (q *Queries) GetMessageByClientID(ctx context.Context, senderID int64, clientID string) (*models.Message, error) {
	m, err := scanMessage(q.queryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE sender_id = ? AND client_id = ?`, senderID, clientID))
	if err != nil {
		return nil, scanErr(err)
	}
	return m, nil
}

// GetMessage returns a message by sequence number.
func (q *Queries) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	m, err := scanMessage(q.queryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if err != nil {
		return nil, scanErr(err)
	}
	return m, nil
}

// Conversation returns up to limit messages between two users with a
// sequence below before (0 means latest), oldest first.
func (q *Queries) Conversation(ctx context.Context, a, b, before int64, limit int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))`
	args := []interface{}{a, b, b, a}
	if before > 0 {
		query += ` AND id < ?`
		args = append(args, before)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	msgs, err := q.listMessages(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MessagesSince returns every message involving userID with sequence > seq,
// in sequence order.
func (q *Queries) MessagesSince(ctx context.Context, userID, seq int64, limit int) ([]*models.Message, error) {
	return q.listMessages(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE id > ? AND (sender_id = ? OR receiver_id = ?) ORDER BY id LIMIT ?`, seq, userID, userID, limit)
}

// MarkConversationRead flags every unread message from sender to receiver.
func (q *Queries) MarkConversationRead(ctx context.Context, receiverID, senderID int64) (int64, error) {
	res, err := q.exec(ctx, `UPDATE messages SET is_read = ? WHERE receiver_id = ? AND sender_id = ? AND is_read = ?`,
		true, receiverID, senderID, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadCounts groups unread messages addressed to userID by sender.
func (q *Queries) UnreadCounts(ctx context.Context, userID int64) ([]models.UnreadCount, error) {
	rows, err := q.query(ctx, `SELECT sender_id, COUNT(*) FROM messages
		WHERE receiver_id = ? AND is_read = ? GROUP BY sender_id ORDER BY sender_id`, userID, false)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.UnreadCount{}
	for rows.Next() {
		var c models.UnreadCount
		if err := rows.Scan(&c.SenderID, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteMessage removes a message sent by senderID.
func (q *Queries) DeleteMessage(ctx context.Context, id, senderID int64) error {
	return rowsAffected(q.exec(ctx, `DELETE FROM messages WHERE id = ? AND sender_id = ?`, id, senderID))
}
