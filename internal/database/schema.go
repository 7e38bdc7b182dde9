// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"fmt"
	"strings"
)

// Table definitions use a small token set so the same text serves every
// engine: {ID} is the auto-increment key, {TS} the timestamp type and {TEXT}
// the unbounded string type.
var tableDefs = []struct {
	name string
	ddl  string
}{
	{"users", `CREATE TABLE users (
	{ID},
	name VARCHAR(255) NOT NULL,
	username VARCHAR(100) NOT NULL UNIQUE,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255) NOT NULL,
	timezone VARCHAR(64) NOT NULL,
	notification_time VARCHAR(16) NOT NULL,
	custom_notification_hours INTEGER NOT NULL,
	custom_notification_minutes INTEGER NOT NULL,
	email_notifications BOOLEAN NOT NULL,
	reminder_emails BOOLEAN NOT NULL,
	push_token VARCHAR(512) NOT NULL,
	created_at {TS} NOT NULL,
	updated_at {TS} NOT NULL,
	deleted_at {TS} NULL
)`},
	{"events", `CREATE TABLE events (
	{ID},
	user_id BIGINT NOT NULL,
	title VARCHAR(255) NOT NULL,
	start_time {TS} NOT NULL,
	end_time {TS} NULL,
	event_type VARCHAR(16) NOT NULL,
	media_id BIGINT NULL,
	media_type VARCHAR(16) NOT NULL,
	notified_at {TS} NULL,
	created_at {TS} NOT NULL,
	updated_at {TS} NOT NULL
)`},
	{"calendar_events", `CREATE TABLE calendar_events (
	{ID},
	event_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	created_by BIGINT NOT NULL,
	is_accepted BOOLEAN NULL,
	is_shared BOOLEAN NOT NULL,
	created_at {TS} NOT NULL,
	UNIQUE (event_id, user_id)
)`},
	{"friends", `CREATE TABLE friends (
	user_low BIGINT NOT NULL,
	user_high BIGINT NOT NULL,
	requested_by BIGINT NOT NULL,
	is_accepted BOOLEAN NOT NULL,
	created_at {TS} NOT NULL,
	PRIMARY KEY (user_low, user_high)
)`},
	{"messages", `CREATE TABLE messages (
	{ID},
	sender_id BIGINT NOT NULL,
	receiver_id BIGINT NOT NULL,
	body {TEXT} NOT NULL,
	client_id VARCHAR(64) NOT NULL,
	is_read BOOLEAN NOT NULL,
	created_at {TS} NOT NULL,
	UNIQUE (sender_id, client_id)
)`},
	{"media_statuses", `CREATE TABLE media_statuses (
	{ID},
	user_id BIGINT NOT NULL,
	media_id BIGINT NOT NULL,
	media_type VARCHAR(16) NOT NULL,
	title VARCHAR(255) NOT NULL,
	poster_path VARCHAR(255) NOT NULL,
	status VARCHAR(32) NOT NULL,
	season INTEGER NULL,
	episode INTEGER NULL,
	tags {TEXT} NOT NULL,
	review {TEXT} NOT NULL,
	created_at {TS} NOT NULL,
	updated_at {TS} NOT NULL,
	UNIQUE (user_id, media_id, media_type)
)`},
	{"interactions", `CREATE TABLE interactions (
	{ID},
	user_id BIGINT NOT NULL,
	media_id BIGINT NOT NULL,
	media_type VARCHAR(16) NOT NULL,
	interaction INTEGER NOT NULL,
	created_at {TS} NOT NULL
)`},
}

var indexDefs = []string{
	`CREATE INDEX idx_events_user ON events (user_id)`,
	`CREATE INDEX idx_events_start ON events (start_time)`,
	`CREATE INDEX idx_calendar_events_user ON calendar_events (user_id)`,
	`CREATE INDEX idx_messages_receiver ON messages (receiver_id)`,
	`CREATE INDEX idx_interactions_user ON interactions (user_id)`,
}

func (d *dialect) render(table, ddl string) string {
	return strings.NewReplacer(
		"{ID}", d.idColumn(table),
		"{TS}", d.timestamp,
		"{TEXT}", d.text,
	).Replace(ddl)
}

func (d *dialect) sequence(table string) string {
	return fmt.Sprintf("CREATE SEQUENCE seq_%s START 1", table)
}

func (d *dialect) initialSchema() []string {
	var stmts []string
	for _, t := range tableDefs {
		if d.sequences && strings.Contains(t.ddl, "{ID}") {
			stmts = append(stmts, d.sequence(t.name))
		}
		stmts = append(stmts, d.render(t.name, t.ddl))
	}
	return append(stmts, indexDefs...)
}

func (d *dialect) outboxSchema() []string {
	var stmts []string
	if d.sequences {
		stmts = append(stmts, d.sequence("outbox"))
	}
	return append(stmts,
		d.render("outbox", `CREATE TABLE outbox (
	{ID},
	topic VARCHAR(32) NOT NULL,
	room VARCHAR(64) NOT NULL,
	event_name VARCHAR(64) NOT NULL,
	user_id BIGINT NOT NULL,
	payload {TEXT} NOT NULL,
	attempts INTEGER NOT NULL,
	last_error {TEXT} NULL,
	created_at {TS} NOT NULL,
	delivered_at {TS} NULL
)`),
		`CREATE INDEX idx_outbox_pending ON outbox (delivered_at, id)`,
	)
}
