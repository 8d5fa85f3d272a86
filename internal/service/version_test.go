package service_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/service"
	"github.com/QuestFinTech/ext-market/internal/store"
)

func TestAddVersion(t *testing.T) {
	f := newFixture(t)
	author, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")

	version, err := f.versions.AddVersion(ext.ID, "1.0.0", "1.0-2.0", "first release",
		strings.NewReader("zip bytes"), actor)
	require.NoError(t, err)

	require.Equal(t, ext.ID, version.ExtensionID)
	require.Equal(t, models.StatusPending, version.Status, "uploads always enter review as pending")
	require.Equal(t, fmt.Sprintf("/extensions/%s/versions/1.0.0/download", ext.ID), version.DownloadURL)
	require.Zero(t, version.DownloadCount)

	reloaded, err := f.extensions.Get(ext.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Versions, 1)
	require.False(t, reloaded.LastUpdated.Before(version.UploadedAt),
		"the upload bumps the parent's last-update stamp")

	artifact, err := f.blobs.Fetch(ext.ID, "1.0.0")
	require.NoError(t, err)
	require.Equal(t, []byte("zip bytes"), artifact.Content)
	require.Equal(t, "application/zip", artifact.ContentType)
	require.Equal(t, fmt.Sprintf("%s_1.0.0.zip", ext.ID), artifact.Name)

	entries := f.auditEntries(t, models.ActionVersionCreated)
	require.Len(t, entries, 1)
	require.Equal(t, author.ID, entries[0].UserID)
	require.Equal(t, &version.ID, entries[0].ExtensionVersionID)
}

func TestAddVersionUnknownExtension(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	unknown := uuid.New()

	_, err := f.versions.AddVersion(unknown, "1.0.0", "", "",
		strings.NewReader("zip bytes"), actor)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.Empty(t, f.auditEntries(t, models.ActionVersionCreated),
		"a failed upload must not leave an audit entry")
	size, err := f.blobs.Size(unknown, "1.0.0")
	require.NoError(t, err)
	require.Zero(t, size, "a failed upload must not leave an artifact")
}

func TestAddVersionForbiddenForNonOwner(t *testing.T) {
	f := newFixture(t)
	_, owner := f.newAuthor(t, "alice")
	_, other := f.newAuthor(t, "bob")
	ext := f.createExtension(t, owner, "Theme Pack")

	_, err := f.versions.AddVersion(ext.ID, "1.0.0", "", "",
		strings.NewReader("zip bytes"), other)
	require.ErrorIs(t, err, service.ErrForbidden)

	size, err := f.blobs.Size(ext.ID, "1.0.0")
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestListVersionsEmptyForKnownExtension(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")

	versions, err := f.versions.ListVersions(ext.ID)
	require.NoError(t, err)
	require.NotNil(t, versions)
	require.Empty(t, versions)
}

func TestListVersionsNewestFirst(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")
	f.addVersion(t, actor, ext.ID, "1.0.0", "")
	f.addVersion(t, actor, ext.ID, "1.1.0", "")
	f.addVersion(t, actor, ext.ID, "2.0.0", "")

	versions, err := f.versions.ListVersions(ext.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Equal(t, "2.0.0", versions[0].VersionNumber)
	require.Equal(t, "1.0.0", versions[2].VersionNumber)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	author, actor := f.newAuthor(t, "alice")
	_, admin := f.newAdmin(t, "root")
	ext := f.createExtension(t, actor, "Theme Pack")
	version := f.addVersion(t, actor, ext.ID, "1.0.0", "")

	updated, err := f.versions.UpdateStatus(version.ID, models.StatusPublished, admin)
	require.NoError(t, err)
	require.Equal(t, models.StatusPublished, updated.Status)

	entries := f.auditEntries(t, models.ActionVersionStatusUpdated)
	require.Len(t, entries, 1)
	require.Equal(t, author.ID, entries[0].UserID,
		"status entries are attributed to the extension author, not the reviewer")
}

func TestUpdateStatusAnyTransitionAllowed(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	_, admin := f.newAdmin(t, "root")
	ext := f.createExtension(t, actor, "Theme Pack")
	version := f.addVersion(t, actor, ext.ID, "1.0.0", "")

	for _, status := range []models.VersionStatus{
		models.StatusPublished,
		models.StatusRejected,
		models.StatusPending,
		models.StatusPublished,
	} {
		updated, err := f.versions.UpdateStatus(version.ID, status, admin)
		require.NoError(t, err, "every status is reachable from every status")
		require.Equal(t, status, updated.Status)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	_, admin := f.newAdmin(t, "root")
	ext := f.createExtension(t, actor, "Theme Pack")
	version := f.addVersion(t, actor, ext.ID, "1.0.0", "")

	_, err := f.versions.UpdateStatus(version.ID, models.VersionStatus("archived"), admin)
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestUpdateStatusForbiddenForNonAdmin(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")
	version := f.addVersion(t, actor, ext.ID, "1.0.0", "")

	_, err := f.versions.UpdateStatus(version.ID, models.StatusPublished, actor)
	require.ErrorIs(t, err, service.ErrForbidden,
		"authors cannot publish their own uploads")
}

func TestIncrementDownloadCount(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")
	version := f.addVersion(t, actor, ext.ID, "1.0.0", "")

	counted, err := f.versions.IncrementDownloadCount(version.ID)
	require.NoError(t, err)
	require.True(t, counted)

	reloaded, err := f.versions.GetVersion(version.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), reloaded.DownloadCount)

	entries := f.auditEntries(t, models.ActionExtensionDownloaded)
	require.Len(t, entries, 1)
	require.Equal(t, models.AnonymousID, entries[0].UserID, "downloads are recorded anonymously")
}

func TestIncrementDownloadCountUnknownVersion(t *testing.T) {
	f := newFixture(t)
	counted, err := f.versions.IncrementDownloadCount(uuid.New())
	require.NoError(t, err, "an unknown version is a miss, not a failure")
	require.False(t, counted)
	require.Empty(t, f.auditEntries(t, models.ActionExtensionDownloaded))
}

func TestIncrementDownloadCountConcurrent(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	ext := f.createExtension(t, actor, "Theme Pack")
	version := f.addVersion(t, actor, ext.ID, "1.0.0", "")

	const downloads = 25
	var wg sync.WaitGroup
	errs := make(chan error, downloads)
	for i := 0; i < downloads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.versions.IncrementDownloadCount(version.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	reloaded, err := f.versions.GetVersion(version.ID)
	require.NoError(t, err)
	require.Equal(t, int64(downloads), reloaded.DownloadCount,
		"concurrent downloads must not lose increments")
}

func TestIsCompatible(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	_, admin := f.newAdmin(t, "root")
	ext := f.createExtension(t, actor, "Theme Pack")
	version := f.addVersion(t, actor, ext.ID, "1.0.0", "1.0-2.0")

	compatible, err := f.versions.IsCompatible(ext.ID, "1.0")
	require.NoError(t, err)
	require.False(t, compatible, "nothing published yet")

	_, err = f.versions.UpdateStatus(version.ID, models.StatusPublished, admin)
	require.NoError(t, err)

	compatible, err = f.versions.IsCompatible(ext.ID, "1.0")
	require.NoError(t, err)
	require.True(t, compatible)

	compatible, err = f.versions.IsCompatible(ext.ID, "1.5")
	require.NoError(t, err)
	require.False(t, compatible, "containment is literal, not numeric range membership")
}

func TestIsCompatibleUsesLatestPublished(t *testing.T) {
	f := newFixture(t)
	_, actor := f.newAuthor(t, "alice")
	_, admin := f.newAdmin(t, "root")
	ext := f.createExtension(t, actor, "Theme Pack")
	v1 := f.addVersion(t, actor, ext.ID, "1.0.0", "1.0")
	v2 := f.addVersion(t, actor, ext.ID, "2.0.0", "2.0")

	_, err := f.versions.UpdateStatus(v1.ID, models.StatusPublished, admin)
	require.NoError(t, err)
	_, err = f.versions.UpdateStatus(v2.ID, models.StatusPublished, admin)
	require.NoError(t, err)

	compatible, err := f.versions.IsCompatible(ext.ID, "1.0")
	require.NoError(t, err)
	require.False(t, compatible, "only the most recently uploaded published version answers")

	compatible, err = f.versions.IsCompatible(ext.ID, "2.0")
	require.NoError(t, err)
	require.True(t, compatible)
}
