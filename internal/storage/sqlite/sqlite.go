// Package sqlite provides the embedded player and battle stores on
// modernc.org/sqlite. They satisfy the same contracts as the PostgreSQL stores.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// sqlite extended result codes.
const (
	codeConstraint           = 19
	codeConstraintForeignKey = 787
	codeConstraintPrimaryKey = 1555
	codeConstraintUnique     = 2067
)

// DB wraps a SQLite handle with the schema applied.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// MemoryPath yields a database private to the returned DB.
//
// Postcondition: Returns a ready DB or a non-nil error.
func Open(ctx context.Context, path string) (*DB, error) {
	var dsn string
	if path == MemoryPath {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		// Pragmas go in the DSN so every pooled connection gets them.
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
			path,
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == MemoryPath {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Health checks that the database answers within timeout.
func (d *DB) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// Close releases the database handle.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// SQL returns the underlying handle for use by repositories.
func (d *DB) SQL() *sql.DB {
	return d.db
}

func errorCode(err error) int {
	var se interface{ Code() int }
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isDuplicateKeyError(err error) bool {
	switch errorCode(err) {
	case codeConstraintPrimaryKey, codeConstraintUnique:
		return true
	case codeConstraint:
		return strings.Contains(err.Error(), "UNIQUE")
	}
	return false
}

func isForeignKeyError(err error) bool {
	switch errorCode(err) {
	case codeConstraintForeignKey:
		return true
	case codeConstraint:
		return strings.Contains(err.Error(), "FOREIGN KEY")
	}
	return false
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
