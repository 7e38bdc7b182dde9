// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tomtom215/nextstream/internal/models"
)

const inviteColumns = `c.id, c.event_id, c.user_id, c.created_by, c.is_accepted, c.is_shared, c.created_at`

func scanInvite(row interface{ Scan(...interface{}) error }) (*models.CalendarInvite, error) {
	var c models.CalendarInvite
	var accepted sql.NullBool
	if err := row.Scan(&c.ID, &c.EventID, &c.UserID, &c.CreatedBy, &accepted, &c.IsShared, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.IsAccepted = boolPtr(accepted)
	return &c, nil
}

// InsertInvite creates a pending invite.
func (q *Queries) InsertInvite(ctx context.Context, c *models.CalendarInvite) error {
	ts := now()
	id, err := q.insertID(ctx, `INSERT INTO calendar_events (event_id, user_id, created_by, is_accepted,
		is_shared, created_at) VALUES (?, ?, ?, NULL, ?, ?)`, c.EventID, c.UserID, c.CreatedBy, true, ts)
	if err != nil {
		return insertErr(err)
	}
	c.ID, c.IsShared, c.CreatedAt, c.IsAccepted = id, true, ts, nil
	return nil
}

// GetInvite returns one invite.
func (q *Queries) GetInvite(ctx context.Context, id int64) (*models.CalendarInvite, error) {
	c, err := scanInvite(q.queryRow(ctx, `SELECT `+inviteColumns+` FROM calendar_events c WHERE c.id = ?`, id))
	if err != nil {
		return nil, scanErr(err)
	}
	return c, nil
}

// GetInviteFor returns the invite of userID to eventID.
func (q *Queries) GetInviteFor(ctx context.Context, eventID, userID int64) (*models.CalendarInvite, error) {
	c, err := scanInvite(q.queryRow(ctx,
		`SELECT `+inviteColumns+` FROM calendar_events c WHERE c.event_id = ? AND c.user_id = ?`, eventID, userID))
	if err != nil {
		return nil, scanErr(err)
	}
	return c, nil
}

// InvitedAmong returns which of userIDs already hold an invite to eventID.
func (q *Queries) InvitedAmong(ctx context.Context, eventID int64, userIDs []int64) ([]int64, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(userIDs)+1)
	args = append(args, eventID)
	for _, id := range userIDs {
		args = append(args, id)
	}
	rows, err := q.query(ctx, `SELECT user_id FROM calendar_events WHERE event_id = ? AND user_id IN (`+
		placeholders(len(userIDs))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AcceptInvite flips a pending invite to accepted. It is a no-op for an
// invite that is already accepted.
func (q *Queries) AcceptInvite(ctx context.Context, id int64) error {
	return rowsAffected(q.exec(ctx, `UPDATE calendar_events SET is_accepted = ? WHERE id = ?`, true, id))
}

// DeleteInvite removes exactly one invite row.
func (q *Queries) DeleteInvite(ctx context.Context, id int64) error {
	return rowsAffected(q.exec(ctx, `DELETE FROM calendar_events WHERE id = ?`, id))
}

// ListInvitesByEvent returns every invite to an event.
func (q *Queries) ListInvitesByEvent(ctx context.Context, eventID int64) ([]*models.CalendarInvite, error) {
	rows, err := q.query(ctx, `SELECT `+inviteColumns+` FROM calendar_events c WHERE c.event_id = ? ORDER BY c.id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.CalendarInvite{}
	for rows.Next() {
		c, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const inviteRowSelect = `SELECT ` + inviteColumns + `, e.title, e.start_time, e.end_time, e.event_type,
	inviter.name, invitee.name
	FROM calendar_events c
	JOIN events e ON e.id = c.event_id
	JOIN users inviter ON inviter.id = c.created_by
	JOIN users invitee ON invitee.id = c.user_id`

func (q *Queries) listInviteRows(ctx context.Context, where string, args ...interface{}) ([]models.InviteRow, error) {
	rows, err := q.query(ctx, inviteRowSelect+` WHERE `+where+` ORDER BY e.start_time, c.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.InviteRow{}
	for rows.Next() {
		var r models.InviteRow
		var accepted sql.NullBool
		var end sql.NullTime
		if err := rows.Scan(&r.Invite.ID, &r.Invite.EventID, &r.Invite.UserID, &r.Invite.CreatedBy, &accepted,
			&r.Invite.IsShared, &r.Invite.CreatedAt, &r.EventTitle, &r.Start, &end, &r.EventType,
			&r.InviterName, &r.InviteeName); err != nil {
			return nil, err
		}
		r.Invite.IsAccepted = boolPtr(accepted)
		r.Start = r.Start.UTC()
		r.End = timePtr(end)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PendingInvites returns unanswered invites addressed to userID.
func (q *Queries) PendingInvites(ctx context.Context, userID int64) ([]models.InviteRow, error) {
	return q.listInviteRows(ctx, `c.user_id = ? AND c.is_accepted IS NULL`, userID)
}

// AcceptedInvites returns accepted invites addressed to userID.
func (q *Queries) AcceptedInvites(ctx context.Context, userID int64) ([]models.InviteRow, error) {
	return q.listInviteRows(ctx, `c.user_id = ? AND c.is_accepted = ?`, userID, true)
}

// InviteRowsByEvent returns the joined invite rows of one event.
func (q *Queries) InviteRowsByEvent(ctx context.Context, eventID int64) ([]models.InviteRow, error) {
	return q.listInviteRows(ctx, `c.event_id = ?`, eventID)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// SharedEventIDs returns the ids of ownerID's events that have at least one
// invite.
func (q *Queries) SharedEventIDs(ctx context.Context, ownerID int64) (map[int64]bool, error) {
	rows, err := q.query(ctx, `SELECT DISTINCT c.event_id FROM calendar_events c
		JOIN events e ON e.id = c.event_id WHERE e.user_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
