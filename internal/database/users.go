// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tomtom215/nextstream/internal/models"
)

const userColumns = `id, name, username, email, password_hash, timezone, notification_time,
	custom_notification_hours, custom_notification_minutes, email_notifications, reminder_emails,
	push_token, created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	var deleted sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Timezone,
		&u.NotificationTime, &u.CustomNotifyHours, &u.CustomNotifyMins, &u.EmailNotifications,
		&u.ReminderEmails, &u.PushToken, &u.CreatedAt, &u.UpdatedAt, &deleted)
	if err != nil {
		return nil, err
	}
	u.DeletedAt = timePtr(deleted)
	return &u, nil
}

// CreateUser inserts a user and sets its ID. Username and email must be unique.
func (q *Queries) CreateUser(ctx context.Context, u *models.User) error {
	ts := now()
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	if u.NotificationTime == "" {
		u.NotificationTime = "15"
	}
	id, err := q.insertID(ctx, `INSERT INTO users (name, username, email, password_hash, timezone,
		notification_time, custom_notification_hours, custom_notification_minutes, email_notifications,
		reminder_emails, push_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Username, strings.ToLower(u.Email), u.PasswordHash, u.Timezone, u.NotificationTime,
		u.CustomNotifyHours, u.CustomNotifyMins, u.EmailNotifications, u.ReminderEmails, u.PushToken, ts, ts)
	if err != nil {
		return insertErr(err)
	}
	u.ID = id
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt, u.UpdatedAt = ts, ts
	return nil
}

// GetUser returns an active (not soft-deleted) user.
func (q *Queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, scanErr(err)
	}
	return u, nil
}

// GetUserByLogin looks a user up by username or email.
func (q *Queries) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	u, err := scanUser(q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE (username = ? OR email = ?) AND deleted_at IS NULL`,
		login, strings.ToLower(login)))
	if err != nil {
		return nil, scanErr(err)
	}
	return u, nil
}

// UpdatePreferences applies the non-nil fields of p.
func (q *Queries) UpdatePreferences(ctx context.Context, id int64, p models.Preferences) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{now()}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Timezone != nil {
		add("timezone", *p.Timezone)
	}
	if p.NotificationTime != nil {
		add("notification_time", *p.NotificationTime)
	}
	if p.CustomNotifyHours != nil {
		add("custom_notification_hours", *p.CustomNotifyHours)
	}
	if p.CustomNotifyMins != nil {
		add("custom_notification_minutes", *p.CustomNotifyMins)
	}
	if p.EmailNotifications != nil {
		add("email_notifications", *p.EmailNotifications)
	}
	if p.ReminderEmails != nil {
		add("reminder_emails", *p.ReminderEmails)
	}
	if p.PushToken != nil {
		add("push_token", *p.PushToken)
	}
	args = append(args, id)
	return rowsAffected(q.exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = ? AND deleted_at IS NULL`, strings.Join(sets, ", ")),
		args...))
}

// SoftDeleteUser marks a user deleted; rows owned by the user are kept.
func (q *Queries) SoftDeleteUser(ctx context.Context, id int64) error {
	return rowsAffected(q.exec(ctx,
		`UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now(), now(), id))
}

// UsersWithEmailNotifications returns users opted into recommendation mail.
func (q *Queries) UsersWithEmailNotifications(ctx context.Context) ([]*models.User, error) {
	return q.listUsers(ctx, `SELECT `+userColumns+` FROM users
		WHERE email_notifications = ? AND deleted_at IS NULL ORDER BY id`, true)
}

// UsersWithReminderEmails returns users opted into the daily digest.
func (q *Queries) UsersWithReminderEmails(ctx context.Context) ([]*models.User, error) {
	return q.listUsers(ctx, `SELECT `+userColumns+` FROM users
		WHERE reminder_emails = ? AND deleted_at IS NULL ORDER BY id`, true)
}

// SearchUsers matches username or name case-insensitively.
func (q *Queries) SearchUsers(ctx context.Context, term string, excludeID int64, limit int) ([]models.UserSummary, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	rows, err := q.query(ctx, `SELECT id, name, username FROM users
		WHERE (LOWER(username) LIKE ? OR LOWER(name) LIKE ?) AND id <> ? AND deleted_at IS NULL
		ORDER BY username LIMIT ?`, pattern, pattern, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.UserSummary{}
	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Username); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) listUsers(ctx context.Context, query string, args ...interface{}) ([]*models.User, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
