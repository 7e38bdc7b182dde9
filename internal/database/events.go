// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/tomtom215/nextstream/internal/models"
)

const eventColumns = `e.id, e.user_id, e.title, e.start_time, e.end_time, e.event_type, e.media_id,
	e.media_type, e.notified_at, e.created_at, e.updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*models.Event, error) {
	var e models.Event
	var end, notified sql.NullTime
	var mediaID sql.NullInt64
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Start, &end, &e.EventType, &mediaID,
		&e.MediaType, &notified, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Start = e.Start.UTC()
	e.End = timePtr(end)
	e.NotifiedAt = timePtr(notified)
	e.MediaID = int64Ptr(mediaID)
	return &e, nil
}

func (q *Queries) listEvents(ctx context.Context, query string, args ...interface{}) ([]*models.Event, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertEvent stores e and sets its ID.
func (q *Queries) InsertEvent(ctx context.Context, e *models.Event) error {
	ts := now()
	id, err := q.insertID(ctx, `INSERT INTO events (user_id, title, start_time, end_time, event_type,
		media_id, media_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Title, e.Start.UTC(), nullTime(e.End), e.EventType, nullInt64(e.MediaID), e.MediaType, ts, ts)
	if err != nil {
		return err
	}
	e.ID = id
	e.CreatedAt, e.UpdatedAt = ts, ts
	return nil
}

// UpdateEvent rewrites the mutable fields of an event owned by e.UserID and
// clears notified_at so a moved event can be reminded again.
func (q *Queries) UpdateEvent(ctx context.Context, e *models.Event) error {
	e.UpdatedAt = now()
	return rowsAffected(q.exec(ctx, `UPDATE events SET title = ?, start_time = ?, end_time = ?,
		event_type = ?, notified_at = NULL, updated_at = ? WHERE id = ? AND user_id = ?`,
		e.Title, e.Start.UTC(), nullTime(e.End), e.EventType, e.UpdatedAt, e.ID, e.UserID))
}

// GetEvent returns an event by id regardless of owner.
func (q *Queries) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(q.queryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id))
	if err != nil {
		return nil, scanErr(err)
	}
	return e, nil
}

// ListEventsByUser returns the events a user owns, ordered by start.
func (q *Queries) ListEventsByUser(ctx context.Context, userID int64) ([]*models.Event, error) {
	return q.listEvents(ctx, `SELECT `+eventColumns+` FROM events e
		WHERE e.user_id = ? ORDER BY e.start_time, e.id`, userID)
}

// ListEventsForUserBetween returns owned events plus accepted shared events
// starting in [from, to).
func (q *Queries) ListEventsForUserBetween(ctx context.Context, userID int64, from, to time.Time) ([]*models.Event, error) {
	return q.listEvents(ctx, `SELECT `+eventColumns+` FROM events e
		WHERE e.start_time >= ? AND e.start_time < ?
		AND (e.user_id = ? OR e.id IN (
			SELECT c.event_id FROM calendar_events c WHERE c.user_id = ? AND c.is_accepted = ?))
		ORDER BY e.start_time, e.id`, from.UTC(), to.UTC(), userID, userID, true)
}

// ListUnnotifiedEventsBetween returns events starting in (from, to] that have
// not been reminded yet.
func (q *Queries) ListUnnotifiedEventsBetween(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	return q.listEvents(ctx, `SELECT `+eventColumns+` FROM events e
		WHERE e.start_time > ? AND e.start_time <= ? AND e.notified_at IS NULL
		ORDER BY e.start_time, e.id`, from.UTC(), to.UTC())
}

// MarkEventNotified records that the reminder for an event went out. It
// returns ErrNotFound when another scan got there first.
func (q *Queries) MarkEventNotified(ctx context.Context, id int64, at time.Time) error {
	return rowsAffected(q.exec(ctx,
		`UPDATE events SET notified_at = ? WHERE id = ? AND notified_at IS NULL`, at.UTC(), id))
}

// DeleteEvent removes an event and every invite pointing at it.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	if _, err := q.exec(ctx, `DELETE FROM calendar_events WHERE event_id = ?`, id); err != nil {
		return err
	}
	return rowsAffected(q.exec(ctx, `DELETE FROM events WHERE id = ?`, id))
}

// ListEventsByMedia returns the events a user linked to a media item.
func (q *Queries) ListEventsByMedia(ctx context.Context, userID, mediaID int64, mediaType string) ([]*models.Event, error) {
	return q.listEvents(ctx, `SELECT `+eventColumns+` FROM events e
		WHERE e.user_id = ? AND e.media_id = ? AND e.media_type = ? ORDER BY e.id`, userID, mediaID, mediaType)
}
