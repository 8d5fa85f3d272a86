package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/service"
	"github.com/QuestFinTech/ext-market/internal/store"
)

func TestExtensionCreate(t *testing.T) {
	f := newFixture(t)
	author, actor := f.newAuthor(t, "alice")

	ext, err := f.extensions.Create("Theme Pack", "A pack of themes", actor.ID, []string{"themes", "ui"})
	require.NoError(t, err)

	require.Equal(t, "Theme Pack", ext.Name)
	require.Equal(t, author.ID, ext.AuthorID)
	require.Equal(t, []string{"themes", "ui"}, ext.Tags)
	require.NotNil(t, ext.Versions, "a fresh extension must carry an empty version list, not nil")
	require.Empty(t, ext.Versions)
	require.Equal(t, ext.CreatedAt, ext.LastUpdated, "creation and last-update stamps start equal")
	require.NotNil(t, ext.Author)
	require.Equal(t, author.Username, ext.Author.Username)

	entries := f.auditEntries(t, models.ActionExtensionCreated)
	require.Len(t, entries, 1)
	require.Equal(t, author.ID, entries[0].UserID)
	require.Equal(t, &ext.ID, entries[0].ExtensionID)
}

func TestExtensionGetUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.extensions.Get(uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestExtensionUpdate(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack", "ui")

	updated, err := f.extensions.Update(ext.ID, "Theme Pack Pro", "more themes", []string{"ui", "pro"}, actor)
	require.NoError(t, err)
	require.Equal(t, "Theme Pack Pro", updated.Name)
	require.Equal(t, []string{"ui", "pro"}, updated.Tags)
	require.Equal(t, ext.AuthorID, updated.AuthorID, "author never changes on update")
	require.False(t, updated.LastUpdated.Before(ext.LastUpdated))
}

func TestExtensionUpdateForbiddenForNonOwner(t *testing.T) {
	f := newFixture(t)
	_, owner := f.newAuthor(t, "alice")
	_, other := f.newAuthor(t, "bob")
	ext := f.createExtension(t, owner, "Theme Pack")

	_, err := f.extensions.Update(ext.ID, "Stolen", "", nil, other)
	require.ErrorIs(t, err, service.ErrForbidden)

	unchanged, err := f.extensions.Get(ext.ID)
	require.NoError(t, err)
	require.Equal(t, "Theme Pack", unchanged.Name)
}

func TestExtensionUpdateAllowedForAdmin(t *testing.T) {
	f := newFixture(t)
	_, owner := f.newAuthor(t, "alice")
	_, admin := f.newAdmin(t, "root")
	ext := f.createExtension(t, owner, "Theme Pack")

	updated, err := f.extensions.Update(ext.ID, "Curated Theme Pack", "", nil, admin)
	require.NoError(t, err)
	require.Equal(t, "Curated Theme Pack", updated.Name)
	require.Equal(t, owner.ID, updated.AuthorID)
}

func TestExtensionDeleteCascades(t *testing.T) {
	f := newFixture(t)
	author, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")
	v1 := f.addVersion(t, actor, ext.ID, "1.0.0", "1.0-2.0")
	v2 := f.addVersion(t, actor, ext.ID, "1.1.0", "1.0-2.0")

	deleted, err := f.extensions.Delete(ext.ID, actor)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = f.extensions.Get(ext.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.versions.GetVersion(v1.ID)
	require.ErrorIs(t, err, store.ErrNotFound, "versions must be removed with their extension")
	_, err = f.versions.GetVersion(v2.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	size, err := f.blobs.Size(ext.ID, "1.0.0")
	require.NoError(t, err)
	require.Zero(t, size, "artifacts must be removed with their extension")

	entries := f.auditEntries(t, models.ActionExtensionDeleted)
	require.Len(t, entries, 1, "exactly one delete entry regardless of version count")
	require.Equal(t, author.ID, entries[0].UserID)
}

func TestExtensionDeleteForbiddenForNonOwner(t *testing.T) {
	f := newFixture(t)
	_, owner := f.newAuthor(t, "alice")
	_, other := f.newAuthor(t, "bob")
	ext := f.createExtension(t, owner, "Theme Pack")

	_, err := f.extensions.Delete(ext.ID, other)
	require.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.extensions.Get(ext.ID)
	require.NoError(t, err, "a forbidden delete must leave the extension in place")
}

func TestExtensionListAllHydratesLatestVersionOnly(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")
	f.addVersion(t, actor, ext.ID, "1.0.0", "")
	latest := f.addVersion(t, actor, ext.ID, "1.1.0", "")

	all, err := f.extensions.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Len(t, all[0].Versions, 1, "list views carry only the most recent version")
	require.Equal(t, latest.ID, all[0].Versions[0].ID)
}

func TestExtensionSearch(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	f.createExtension(t, actor, "Theme Pack", "ui", "themes")
	f.createExtension(t, actor, "Linter", "tools")
	f.createExtension(t, actor, "Theme Studio", "tools")

	byTerm, err := f.extensions.Search("theme", nil)
	require.NoError(t, err)
	require.Len(t, byTerm, 2, "term matches name case-insensitively")

	byTermAndTag, err := f.extensions.Search("theme", []string{"tools"})
	require.NoError(t, err)
	require.Len(t, byTermAndTag, 1, "term and tags compose with AND")
	require.Equal(t, "Theme Studio", byTermAndTag[0].Name)

	noMatch, err := f.extensions.Search("theme", []string{"games"})
	require.NoError(t, err)
	require.Empty(t, noMatch)
}

func TestExtensionByAuthor(t *testing.T) {
	f := newFixture(t)
	_, alice := f.newAuthor(t, "alice")
	_, bob := f.newAuthor(t, "bob")
	f.createExtension(t, alice, "Theme Pack")
	f.createExtension(t, bob, "Linter")

	mine, err := f.extensions.ByAuthor(alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "Theme Pack", mine[0].Name)
}

func TestExtensionAuthorGoneYieldsNilAuthor(t *testing.T) {
	f := newFixture(t)
	author, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")

	deleted, err := f.users.Delete(author.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	got, err := f.extensions.Get(ext.ID)
	require.NoError(t, err, "extensions outlive their author")
	require.Nil(t, got.Author)
	require.Equal(t, author.ID, got.AuthorID, "the author id reference stays")
}
