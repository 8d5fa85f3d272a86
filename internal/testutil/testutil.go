// Package testutil provides shared fixtures for the package test suites.
package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/QuestFinTech/ext-market/internal/storage"
	"github.com/QuestFinTech/ext-market/internal/store"
)

// NewTestStore opens an in-memory database with the schema applied. The pool
// is pinned to a single connection: each in-memory SQLite connection is its
// own database, so a second pooled connection would see no tables.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)
	_, err = db.Exec(store.Schema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return store.New(db)
}

// NewTestBlobStore returns a disk store rooted in a per-test temp directory.
func NewTestBlobStore(t *testing.T) *storage.DiskStore {
	t.Helper()
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return blobs
}
