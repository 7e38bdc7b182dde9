// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/nextstream/internal/config"
	"github.com/tomtom215/nextstream/internal/models"
)

var testDBSeq atomic.Int64

// NewTestDB opens a migrated in-memory SQLite database that is closed when
// the test ends. Each call gets its own database.
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	dsn := fmt.Sprintf("file:nextstream_test_%d?mode=memory&cache=shared&_loc=UTC", testDBSeq.Add(1))
	db, err := Open(context.Background(), &config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})
	return db
}

// MustCreateUser inserts a user with the given username for tests.
func MustCreateUser(t testing.TB, db *DB, username string) int64 {
	t.Helper()

	u := &models.User{
		Name:         username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "unused",
		Timezone:     "UTC",
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u.ID
}
