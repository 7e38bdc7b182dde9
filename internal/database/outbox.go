// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/tomtom215/nextstream/internal/models"
)

// Enqueue records side effects in the current transaction.
func (q *Queries) Enqueue(ctx context.Context, entries ...models.OutboxEntry) error {
	ts := now()
	for i := range entries {
		e := &entries[i]
		payload := string(e.Payload)
		if payload == "" {
			payload = "null"
		}
		id, err := q.insertID(ctx, `INSERT INTO outbox (topic, room, event_name, user_id, payload, attempts,
			created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`, e.Topic, e.Room, e.Event, e.UserID, payload, 0, ts)
		if err != nil {
			return fmt.Errorf("failed to enqueue %s/%s: %w", e.Topic, e.Event, err)
		}
		e.ID, e.CreatedAt = id, ts
	}
	return nil
}

// PendingOutbox returns undelivered entries with fewer than maxAttempts
// failures, oldest first.
func (q *Queries) PendingOutbox(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEntry, error) {
	rows, err := q.query(ctx, `SELECT id, topic, room, event_name, user_id, payload, attempts, last_error, created_at
		FROM outbox WHERE delivered_at IS NULL AND attempts < ? ORDER BY id LIMIT ?`, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OutboxEntry
	for rows.Next() {
		var e models.OutboxEntry
		var payload string
		var lastErr sql.NullString
		if err := rows.Scan(&e.ID, &e.Topic, &e.Room, &e.Event, &e.UserID, &payload, &e.Attempts, &lastErr,
			&e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		e.LastError = lastErr.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkDelivered stamps an entry as published.
func (q *Queries) MarkDelivered(ctx context.Context, id int64) error {
	return rowsAffected(q.exec(ctx, `UPDATE outbox SET delivered_at = ? WHERE id = ?`, now(), id))
}

// MarkFailed records a failed publish attempt.
func (q *Queries) MarkFailed(ctx context.Context, id int64, cause error) error {
	msg := truncateUTF8(cause.Error(), maxLastErrorBytes)
	return rowsAffected(q.exec(ctx, `UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`, msg, id))
}

const maxLastErrorBytes = 1000

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// PurgeDelivered deletes entries delivered before cutoff and returns the count.
func (q *Queries) PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM outbox WHERE delivered_at IS NOT NULL AND delivered_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// OutboxStats counts pending and dead (attempts exhausted) entries.
func (q *Queries) OutboxStats(ctx context.Context, maxAttempts int) (pending, dead int64, err error) {
	err = q.queryRow(ctx, `SELECT
		COALESCE(SUM(CASE WHEN attempts < ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN attempts >= ? THEN 1 ELSE 0 END), 0)
		FROM outbox WHERE delivered_at IS NULL`, maxAttempts, maxAttempts).Scan(&pending, &dead)
	return pending, dead, err
}
