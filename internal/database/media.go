// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nextstream/internal/models"
)

const mediaStatusColumns = `id, user_id, media_id, media_type, title, poster_path, status, season, episode,
	tags, review, created_at, updated_at`

func scanMediaStatus(row interface{ Scan(...interface{}) error }) (*models.MediaStatus, error) {
	var m models.MediaStatus
	var season, episode sql.NullInt64
	var tags string
	if err := row.Scan(&m.ID, &m.UserID, &m.MediaID, &m.MediaType, &m.Title, &m.PosterPath, &m.Status,
		&season, &episode, &tags, &m.Review, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Season = intPtr(season)
	m.Episode = intPtr(episode)
	m.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
			return nil, fmt.Errorf("media status %d has malformed tags: %w", m.ID, err)
		}
	}
	return &m, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

// GetMediaStatus returns a status row owned by userID.
func (q *Queries) GetMediaStatus(ctx context.Context, userID, id int64) (*models.MediaStatus, error) {
	m, err := scanMediaStatus(q.queryRow(ctx,
		`SELECT `+mediaStatusColumns+` FROM media_statuses WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return nil, scanErr(err)
	}
	return m, nil
}

// FindMediaStatus looks a row up by its natural key.
func (q *Queries) FindMediaStatus(ctx context.Context, userID, mediaID int64, mediaType string) (*models.MediaStatus, error) {
	m, err := scanMediaStatus(q.queryRow(ctx, `SELECT `+mediaStatusColumns+` FROM media_statuses
		WHERE user_id = ? AND media_id = ? AND media_type = ?`, userID, mediaID, mediaType))
	if err != nil {
		return nil, scanErr(err)
	}
	return m, nil
}

// ListMediaStatuses returns a user's rows, optionally filtered by status.
func (q *Queries) ListMediaStatuses(ctx context.Context, userID int64, status string) ([]*models.MediaStatus, error) {
	query := `SELECT ` + mediaStatusColumns + ` FROM media_statuses WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.MediaStatus{}
	for rows.Next() {
		m, err := scanMediaStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMediaStatus stores a new row and sets its ID.
func (q *Queries) InsertMediaStatus(ctx context.Context, m *models.MediaStatus) error {
	tags, err := encodeTags(m.Tags)
	if err != nil {
		return err
	}
	ts := now()
	id, err := q.insertID(ctx, `INSERT INTO media_statuses (user_id, media_id, media_type, title, poster_path,
		status, season, episode, tags, review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.MediaID, m.MediaType, m.Title, m.PosterPath, m.Status, nullInt(m.Season), nullInt(m.Episode),
		tags, m.Review, ts, ts)
	if err != nil {
		return insertErr(err)
	}
	m.ID, m.CreatedAt, m.UpdatedAt = id, ts, ts
	return nil
}

// UpdateMediaStatus rewrites the mutable columns of m.
func (q *Queries) UpdateMediaStatus(ctx context.Context, m *models.MediaStatus) error {
	tags, err := encodeTags(m.Tags)
	if err != nil {
		return err
	}
	m.UpdatedAt = now()
	return rowsAffected(q.exec(ctx, `UPDATE media_statuses SET title = ?, poster_path = ?, status = ?,
		season = ?, episode = ?, tags = ?, review = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		m.Title, m.PosterPath, m.Status, nullInt(m.Season), nullInt(m.Episode), tags, m.Review, m.UpdatedAt,
		m.ID, m.UserID))
}

// DeleteMediaStatus removes a status row together with the events linked to
// the same media (and their invites) and the user's interactions with it.
// Callers run it inside WithTx.
func (q *Queries) DeleteMediaStatus(ctx context.Context, m *models.MediaStatus) error {
	if _, err := q.exec(ctx, `DELETE FROM calendar_events WHERE event_id IN (
		SELECT id FROM events WHERE user_id = ? AND media_id = ? AND media_type = ?)`,
		m.UserID, m.MediaID, m.MediaType); err != nil {
		return err
	}
	if _, err := q.exec(ctx, `DELETE FROM events WHERE user_id = ? AND media_id = ? AND media_type = ?`,
		m.UserID, m.MediaID, m.MediaType); err != nil {
		return err
	}
	if _, err := q.exec(ctx, `DELETE FROM interactions WHERE user_id = ? AND media_id = ? AND media_type = ?`,
		m.UserID, m.MediaID, m.MediaType); err != nil {
		return err
	}
	return rowsAffected(q.exec(ctx, `DELETE FROM media_statuses WHERE id = ? AND user_id = ?`, m.ID, m.UserID))
}

// InsertInteraction appends a like/dislike row. Repeats are kept.
func (q *Queries) InsertInteraction(ctx context.Context, in *models.Interaction) error {
	in.CreatedAt = now()
	id, err := q.insertID(ctx, `INSERT INTO interactions (user_id, media_id, media_type, interaction, created_at)
		VALUES (?, ?, ?, ?, ?)`, in.UserID, in.MediaID, in.MediaType, in.Interaction, in.CreatedAt)
	if err != nil {
		return err
	}
	in.ID = id
	return nil
}

// ListInteractions returns every interaction row of a user, newest first.
func (q *Queries) ListInteractions(ctx context.Context, userID int64) ([]*models.Interaction, error) {
	rows, err := q.query(ctx, `SELECT id, user_id, media_id, media_type, interaction, created_at
		FROM interactions WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Interaction{}
	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.MediaID, &in.MediaType, &in.Interaction, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &in)
	}
	return out, rows.Err()
}
