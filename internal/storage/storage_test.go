package storage_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/QuestFinTech/ext-market/internal/storage"
)

func newStore(t *testing.T) (*storage.DiskStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestSaveAndFetch(t *testing.T) {
	store, dir := newStore(t)
	extID := uuid.New()

	locator, err := store.Save(extID, "1.0.0", strings.NewReader("zip bytes"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, extID.String(), "1.0.0.zip"), locator)

	artifact, err := store.Fetch(extID, "1.0.0")
	require.NoError(t, err)
	require.Equal(t, []byte("zip bytes"), artifact.Content)
	require.Equal(t, "application/zip", artifact.ContentType)
	require.Equal(t, fmt.Sprintf("%s_1.0.0.zip", extID), artifact.Name)
}

func TestSaveOverwrites(t *testing.T) {
	store, _ := newStore(t)
	extID := uuid.New()

	_, err := store.Save(extID, "1.0.0", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.Save(extID, "1.0.0", strings.NewReader("second"))
	require.NoError(t, err)

	artifact, err := store.Fetch(extID, "1.0.0")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), artifact.Content)
}

func TestFetchMissing(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Fetch(uuid.New(), "1.0.0")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeletePrunesEmptyDirectory(t *testing.T) {
	store, dir := newStore(t)
	extID := uuid.New()
	_, err := store.Save(extID, "1.0.0", strings.NewReader("zip bytes"))
	require.NoError(t, err)
	_, err = store.Save(extID, "2.0.0", strings.NewReader("zip bytes"))
	require.NoError(t, err)

	deleted, err := store.Delete(extID, "1.0.0")
	require.NoError(t, err)
	require.True(t, deleted)
	_, err = os.Stat(filepath.Join(dir, extID.String()))
	require.NoError(t, err, "the directory stays while it still holds artifacts")

	deleted, err = store.Delete(extID, "2.0.0")
	require.NoError(t, err)
	require.True(t, deleted)
	_, err = os.Stat(filepath.Join(dir, extID.String()))
	require.True(t, os.IsNotExist(err), "the empty directory is pruned")
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	store, _ := newStore(t)
	deleted, err := store.Delete(uuid.New(), "1.0.0")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestSize(t *testing.T) {
	store, _ := newStore(t)
	extID := uuid.New()

	size, err := store.Size(extID, "1.0.0")
	require.NoError(t, err)
	require.Zero(t, size, "absent artifacts size to zero")

	_, err = store.Save(extID, "1.0.0", strings.NewReader("12345"))
	require.NoError(t, err)

	size, err = store.Size(extID, "1.0.0")
	require.NoError(t, err)
	require.Equal(t, int64(5), size)
}
