package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS guild_configs (
    guild_id               TEXT PRIMARY KEY,
    ticket_channel_id      TEXT NOT NULL DEFAULT '',
    category_id            TEXT NOT NULL DEFAULT '',
    logs_channel_id        TEXT NOT NULL DEFAULT '',
    transcripts_channel_id TEXT NOT NULL DEFAULT '',
    rating_channel_id      TEXT NOT NULL DEFAULT '',
    support_role_id        TEXT NOT NULL DEFAULT '',
    panel_message_id       TEXT NOT NULL DEFAULT '',
    panel_title            TEXT NOT NULL DEFAULT '',
    panel_description      TEXT NOT NULL DEFAULT '',
    panel_color            INTEGER NOT NULL DEFAULT 0,
    panel_button_label     TEXT NOT NULL DEFAULT '',
    panel_button_emoji     TEXT NOT NULL DEFAULT '',
    panel_button_style     INTEGER NOT NULL DEFAULT 0,
    last_ticket_number     INTEGER NOT NULL DEFAULT 0,
    created_at             INTEGER NOT NULL,
    updated_at             INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS guild_staff (
    guild_id   TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('role', 'member')),
    subject_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (guild_id, kind, subject_id)
);

CREATE TABLE IF NOT EXISTS tickets (
    id            TEXT PRIMARY KEY,
    guild_id      TEXT NOT NULL,
    channel_id    TEXT NOT NULL UNIQUE,
    ticket_number INTEGER NOT NULL,
    user_id       TEXT NOT NULL,
    status        TEXT NOT NULL CHECK (status IN ('open', 'closed')),
    subject       TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT '',
    assigned_to   TEXT,
    closed_by     TEXT,
    close_reason  TEXT,
    closed_at     INTEGER,
    delete_after  INTEGER,
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL,
    UNIQUE (guild_id, ticket_number)
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_tickets_open_owner ON tickets (guild_id, user_id) WHERE status = 'open';
CREATE INDEX IF NOT EXISTS ix_tickets_user_closed ON tickets (user_id, closed_at);
CREATE INDEX IF NOT EXISTS ix_tickets_delete_after ON tickets (delete_after) WHERE delete_after IS NOT NULL;

CREATE TABLE IF NOT EXISTS ticket_ratings (
    id              TEXT PRIMARY KEY,
    guild_id        TEXT NOT NULL,
    ticket_id       TEXT NOT NULL UNIQUE,
    ticket_number   INTEGER NOT NULL,
    user_id         TEXT NOT NULL,
    support_user_id TEXT NOT NULL DEFAULT '',
    rating          INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    feedback        TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);`

// InitDB opens (creating if needed) the SQLite database at dbPath and applies the schema.
func InitDB(dbPath string) (*sql.DB, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer connection serializes statements; every guarded
	// write is one statement, so nothing holds the connection across calls.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

// SQLiteStore implements Store on database/sql with the sqlite3 driver.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps an initialized database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite initializes the database at path and returns a store over it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
