package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/QuestFinTech/ext-market/internal/models"
)

const versionColumns = `id, extension_id, version_number, host_version_support, release_notes,
	download_url, status, uploaded_at, download_count`

// InsertVersion writes a new version row.
func (s *Store) InsertVersion(q sqlx.Ext, v *models.ExtensionVersion) error {
	_, err := q.Exec(
		`INSERT INTO extension_versions (id, extension_id, version_number, host_version_support,
			release_notes, download_url, status, uploaded_at, download_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ExtensionID, v.VersionNumber, v.HostVersionSupport,
		v.ReleaseNotes, v.DownloadURL, v.Status, v.UploadedAt, v.DownloadCount,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// GetVersion fetches a version by id.
func (s *Store) GetVersion(q sqlx.Queryer, id uuid.UUID) (*models.ExtensionVersion, error) {
	var v models.ExtensionVersion
	err := sqlx.Get(q, &v, `SELECT `+versionColumns+` FROM extension_versions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &v, nil
}

// GetVersionByNumber fetches a version by extension and version number.
// Numbers are not unique per extension, so the newest upload wins.
func (s *Store) GetVersionByNumber(q sqlx.Queryer, extensionID uuid.UUID, versionNumber string) (*models.ExtensionVersion, error) {
	var v models.ExtensionVersion
	err := sqlx.Get(q, &v,
		`SELECT `+versionColumns+` FROM extension_versions
		 WHERE extension_id = ? AND version_number = ?
		 ORDER BY uploaded_at DESC, rowid DESC LIMIT 1`,
		extensionID, versionNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %s of extension %s: %w", versionNumber, extensionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get version by number: %w", err)
	}
	return &v, nil
}

// ListVersionsByExtension returns every version of the extension, newest
// upload first.
func (s *Store) ListVersionsByExtension(q sqlx.Queryer, extensionID uuid.UUID) ([]models.ExtensionVersion, error) {
	var versions []models.ExtensionVersion
	err := sqlx.Select(q, &versions,
		`SELECT `+versionColumns+` FROM extension_versions
		 WHERE extension_id = ? ORDER BY uploaded_at DESC, rowid DESC`,
		extensionID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// ListAllVersions returns every version across all extensions, newest upload
// first.
func (s *Store) ListAllVersions(q sqlx.Queryer) ([]models.ExtensionVersion, error) {
	var versions []models.ExtensionVersion
	err := sqlx.Select(q, &versions,
		`SELECT `+versionColumns+` FROM extension_versions ORDER BY uploaded_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all versions: %w", err)
	}
	return versions, nil
}

// LatestVersionByExtension returns the most recently uploaded version, or
// ErrNotFound when the extension has none.
func (s *Store) LatestVersionByExtension(q sqlx.Queryer, extensionID uuid.UUID) (*models.ExtensionVersion, error) {
	var v models.ExtensionVersion
	err := sqlx.Get(q, &v,
		`SELECT `+versionColumns+` FROM extension_versions
		 WHERE extension_id = ? ORDER BY uploaded_at DESC, rowid DESC LIMIT 1`,
		extensionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest version of extension %s: %w", extensionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest version: %w", err)
	}
	return &v, nil
}

// LatestPublishedVersion returns the most recently uploaded published
// version, or ErrNotFound when none is published.
func (s *Store) LatestPublishedVersion(q sqlx.Queryer, extensionID uuid.UUID) (*models.ExtensionVersion, error) {
	var v models.ExtensionVersion
	err := sqlx.Get(q, &v,
		`SELECT `+versionColumns+` FROM extension_versions
		 WHERE extension_id = ? AND status = ? ORDER BY uploaded_at DESC, rowid DESC LIMIT 1`,
		extensionID, models.StatusPublished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("published version of extension %s: %w", extensionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest published version: %w", err)
	}
	return &v, nil
}

// UpdateVersionStatus writes the new review status. No transition table is
// enforced: any status is reachable from any status.
func (s *Store) UpdateVersionStatus(q sqlx.Ext, id uuid.UUID, status models.VersionStatus) error {
	res, err := q.Exec(`UPDATE extension_versions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update version status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update version status rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementDownloadCount bumps the counter in a single UPDATE so concurrent
// downloads of the same version never lose an increment. Returns false when
// the version does not exist.
func (s *Store) IncrementDownloadCount(q sqlx.Ext, id uuid.UUID) (bool, error) {
	res, err := q.Exec(
		`UPDATE extension_versions SET download_count = download_count + 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("increment download count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment download count rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteVersionsByExtension removes all version rows of an extension; the
// application-level half of the delete cascade.
func (s *Store) DeleteVersionsByExtension(q sqlx.Ext, extensionID uuid.UUID) error {
	if _, err := q.Exec(`DELETE FROM extension_versions WHERE extension_id = ?`, extensionID); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	return nil
}
