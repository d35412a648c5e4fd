// Package store provides the SQLite-backed note store: note rows, the sharing
// ledger, the derived per-note search index, and the mirrored user directory.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	is_public  INTEGER NOT NULL DEFAULT 0,
	checksum   TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id, updated_at);

CREATE TABLE IF NOT EXISTS note_shares (
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (note_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_note_shares_user ON note_shares(user_id);

CREATE TABLE IF NOT EXISTS note_terms (
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	term       TEXT NOT NULL,
	title_tf   INTEGER NOT NULL DEFAULT 0,
	content_tf INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (note_id, term)
);

CREATE INDEX IF NOT EXISTS idx_note_terms_term ON note_terms(term);
`

// DB wraps a sql.DB with note-store operations.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (or creates) the SQLite database and applies the schema.
//
// Write transactions are opened with BEGIN IMMEDIATE so concurrent writers to
// the same note serialize on the database lock instead of failing on upgrade.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// nextTimestamp returns the current time in unix nanoseconds, strictly after prev.
func (db *DB) nextTimestamp(prev int64) int64 {
	ts := db.now().UTC().UnixNano()
	if ts <= prev {
		ts = prev + 1
	}
	return ts
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
