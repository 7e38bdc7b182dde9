// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"

	"github.com/tomtom215/nextstream/internal/models"
)

// InsertFriendRequest stores a pending request from requester to addressee
// under the canonical (min, max) key.
func (q *Queries) InsertFriendRequest(ctx context.Context, requester, addressee int64) (*models.Friendship, error) {
	low, high := models.CanonicalPair(requester, addressee)
	f := &models.Friendship{UserLow: low, UserHigh: high, RequestedBy: requester, CreatedAt: now()}
	_, err := q.exec(ctx, `INSERT INTO friends (user_low, user_high, requested_by, is_accepted, created_at)
		VALUES (?, ?, ?, ?, ?)`, low, high, requester, false, f.CreatedAt)
	if err != nil {
		return nil, insertErr(err)
	}
	return f, nil
}

// GetFriendship returns the row for a pair in either order.
func (q *Queries) GetFriendship(ctx context.Context, a, b int64) (*models.Friendship, error) {
	low, high := models.CanonicalPair(a, b)
	var f models.Friendship
	err := q.queryRow(ctx, `SELECT user_low, user_high, requested_by, is_accepted, created_at
		FROM friends WHERE user_low = ? AND user_high = ?`, low, high).
		Scan(&f.UserLow, &f.UserHigh, &f.RequestedBy, &f.IsAccepted, &f.CreatedAt)
	if err != nil {
		return nil, scanErr(err)
	}
	return &f, nil
}

// AcceptFriendship marks a pair accepted.
func (q *Queries) AcceptFriendship(ctx context.Context, a, b int64) error {
	low, high := models.CanonicalPair(a, b)
	return rowsAffected(q.exec(ctx,
		`UPDATE friends SET is_accepted = ? WHERE user_low = ? AND user_high = ? AND is_accepted = ?`,
		true, low, high, false))
}

// DeleteFriendship removes a pair in any state.
func (q *Queries) DeleteFriendship(ctx context.Context, a, b int64) error {
	low, high := models.CanonicalPair(a, b)
	return rowsAffected(q.exec(ctx, `DELETE FROM friends WHERE user_low = ? AND user_high = ?`, low, high))
}

// ListFriendViews returns the other side of each pair involving userID,
// filtered by acceptance and, for pending rows, by direction.
//
// incoming selects pending requests sent to userID; outgoing selects pending
// requests sent by userID. Accepted friends ignore the direction flags.
func (q *Queries) ListFriendViews(ctx context.Context, userID int64, accepted, incoming bool) ([]models.FriendView, error) {
	query := `SELECT u.id, u.name, u.username, f.requested_by, f.is_accepted, f.created_at
		FROM friends f
		JOIN users u ON u.id = CASE WHEN f.user_low = ? THEN f.user_high ELSE f.user_low END
		WHERE (f.user_low = ? OR f.user_high = ?) AND f.is_accepted = ? AND u.deleted_at IS NULL`
	args := []interface{}{userID, userID, userID, accepted}
	if !accepted {
		if incoming {
			query += ` AND f.requested_by <> ?`
		} else {
			query += ` AND f.requested_by = ?`
		}
		args = append(args, userID)
	}
	query += ` ORDER BY u.username`

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.FriendView{}
	for rows.Next() {
		var v models.FriendView
		if err := rows.Scan(&v.ID, &v.Name, &v.Username, &v.RequestedBy, &v.IsAccepted, &v.Since); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
