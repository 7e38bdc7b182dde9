// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// dialect captures the handful of SQL differences between the supported
// engines. Queries are written with ? placeholders and rebound on the way out.
type dialect struct {
	name       string
	driverName string
	dollarArgs bool // $1, $2 ... placeholders
	returning  bool // INSERT ... RETURNING id
	sequences  bool // ids come from CREATE SEQUENCE + nextval
	timestamp  string
	text       string
}

var dialects = map[string]*dialect{
	"mysql": {
		name: "mysql", driverName: "mysql",
		timestamp: "DATETIME(6)", text: "TEXT",
	},
	"postgres": {
		name: "postgres", driverName: "postgres",
		dollarArgs: true, returning: true,
		timestamp: "TIMESTAMP", text: "TEXT",
	},
	"sqlite": {
		name: "sqlite", driverName: "sqlite3",
		timestamp: "TIMESTAMP", text: "TEXT",
	},
	"duckdb": {
		name: "duckdb", driverName: "duckdb",
		returning: true, sequences: true,
		timestamp: "TIMESTAMP", text: "VARCHAR",
	},
}

// normalizeDSN forces the MySQL options the store relies on: UTC time
// scanning, and found-rows semantics so an update that changes nothing still
// reports its match.
func (d *dialect) normalizeDSN(dsn string) (string, error) {
	if d.name != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func lookupDialect(name string) (*dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", name)
	}
	return d, nil
}

// idColumn renders an auto-incrementing primary key for table.
func (d *dialect) idColumn(table string) string {
	switch d.name {
	case "mysql":
		return "id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	case "postgres":
		return "id BIGSERIAL PRIMARY KEY"
	case "sqlite":
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		return fmt.Sprintf("id BIGINT PRIMARY KEY DEFAULT nextval('seq_%s')", table)
	}
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// insertID runs an INSERT and returns the generated id, using RETURNING where
// the engine supports it and LastInsertId otherwise.
func (q *Queries) insertID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if q.d.returning {
		var id int64
		if err := q.q.QueryRowContext(ctx, q.d.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.q.ExecContext(ctx, q.d.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// isUniqueViolation recognizes duplicate-key errors from every driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	// duckdb reports constraint failures only through the message text.
	return strings.Contains(err.Error(), "Duplicate key")
}
