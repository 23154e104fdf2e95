// CLAUDE:SUMMARY Opens the sintesis SQLite database: fixed pragmas, optional parent mkdir, inline schema.
// Package dbopen opens the SQLite database behind the content store.
//
// Every connection gets foreign_keys=ON (images.article_id references
// articles.id), WAL journaling, a 10s busy timeout and synchronous=NORMAL.
// Pragmas are plain EXEC statements; the caller blank-imports the driver
// (modernc.org/sqlite, registered as "sqlite").
//
//	db, err := dbopen.Open("sintesis.db", dbopen.WithMkdirAll(), dbopen.WithSchema(store.Schema))
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const driverName = "sqlite"

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

type options struct {
	mkdirAll bool
	schemas  []string
}

// Option customises Open.
type Option func(*options)

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// WithSchema queues DDL run after the pragmas, in registration order.
func WithSchema(ddl string) Option { return func(o *options) { o.schemas = append(o.schemas, ddl) } }

// Open opens and pings the database at path.
func Open(path string, opts ...Option) (*sql.DB, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	if o.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	steps := append(append([]string(nil), pragmas...), o.schemas...)
	for i, stmt := range steps {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			if i < len(pragmas) {
				return nil, fmt.Errorf("dbopen: %s: %w", stmt, err)
			}
			return nil, fmt.Errorf("dbopen: exec schema: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory database for tests, closed on cleanup.
// Open pins ":memory:" to one connection: each connection is its own database.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
