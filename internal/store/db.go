// Package store is the relational persistence layer. It keeps extension,
// version, user, and audit rows in SQLite behind sqlx, and exposes every
// write so it can run inside a caller-owned transaction.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// Schema is the database schema, applied idempotently at open time.
//
// Note: version_number is not constrained unique per extension; the
// uniqueness rule lives with the upload caller.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	roles TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	last_login DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS extensions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	author_id TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	last_updated DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS extension_versions (
	id TEXT PRIMARY KEY,
	extension_id TEXT NOT NULL REFERENCES extensions(id),
	version_number TEXT NOT NULL,
	host_version_support TEXT NOT NULL DEFAULT '',
	release_notes TEXT NOT NULL DEFAULT '',
	download_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	uploaded_at DATETIME NOT NULL,
	download_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_versions_extension ON extension_versions(extension_id);

CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	user_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	details TEXT NOT NULL DEFAULT '',
	extension_id TEXT,
	extension_version_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_logs(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_extension ON audit_logs(extension_id);
`

// Store wraps the database handle. All entity methods take an sqlx.Ext so
// they run against either the handle or an open transaction.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA journal_mode = WAL`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-open handle. Used by tests.
func New(db *sqlx.DB) *Store { return &Store{db: db} }

// DB returns the underlying handle for use as an sqlx.Ext outside a
// transaction.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn inside a transaction. Any error from fn rolls back every
// write performed so far and is returned to the caller.
func (s *Store) WithTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// joinList and splitList store string sets (tags, roles) as a comma-joined
// column.
func joinList(items []string) string { return strings.Join(items, ",") }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
