// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

// Package testinfra starts real databases in Docker for integration tests.
//
// Unit tests run the store against in-memory SQLite. The dialect differences
// that matter (placeholders, upserts, auto-increment ids, time handling) are
// covered by running the same store tests against MySQL and PostgreSQL:
//
//	func TestStoreMySQL(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    c, err := testinfra.NewMySQLContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    testinfra.CleanupContainer(t, c.Container)
//	    // database.Open(ctx, &config.DatabaseConfig{Driver: c.Driver, DSN: c.DSN})
//	}
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/database/...
package testinfra
