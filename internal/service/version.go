package service

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"

	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/storage"
	"github.com/QuestFinTech/ext-market/internal/store"
)

// VersionService manages the append-only version history of extensions:
// uploads, review-status transitions, download counting, and the host
// compatibility answer.
type VersionService struct {
	store  *store.Store
	blobs  storage.Store
	audit  *AuditLogService
	cache  *cache.Cache
	logger *log.Logger
}

// NewVersionService creates a VersionService. Pass the cache shared with
// the ExtensionService; version mutations invalidate list hydrations.
func NewVersionService(st *store.Store, blobs storage.Store, audit *AuditLogService, c *cache.Cache, logger *log.Logger) *VersionService {
	return &VersionService{store: st, blobs: blobs, audit: audit, cache: c, logger: logger}
}

// DownloadURL derives the stable artifact URL persisted on each version.
func DownloadURL(extensionID uuid.UUID, versionNumber string) string {
	return fmt.Sprintf("/extensions/%s/versions/%s/download", extensionID, versionNumber)
}

// AddVersion uploads a new version: the artifact is written to the blob
// store first, then the version insert, the parent's last_updated bump, and
// the audit entry commit as one transaction. If that transaction fails the
// already-written artifact is deleted best-effort so it is not left
// orphaned. The new version always starts pending review.
func (s *VersionService) AddVersion(extensionID uuid.UUID, versionNumber, hostSupport, releaseNotes string, file io.Reader, actor models.Actor) (*models.ExtensionVersion, error) {
	ext, err := s.store.GetExtension(s.store.DB(), extensionID)
	if err != nil {
		return nil, err
	}
	if !CanModify(actor.ID, actor.Roles, ext.AuthorID) {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	version := &models.ExtensionVersion{
		ID:                 uuid.New(),
		ExtensionID:        extensionID,
		VersionNumber:      versionNumber,
		HostVersionSupport: hostSupport,
		ReleaseNotes:       releaseNotes,
		DownloadURL:        DownloadURL(extensionID, versionNumber),
		Status:             models.StatusPending,
		UploadedAt:         now,
	}

	if _, err := s.blobs.Save(extensionID, versionNumber, file); err != nil {
		return nil, fmt.Errorf("save version artifact: %w", err)
	}

	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.InsertVersion(tx, version); err != nil {
			return err
		}
		if err := s.store.TouchExtension(tx, extensionID, now); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionVersionCreated, ext.AuthorID,
			fmt.Sprintf("Version %s created for extension '%s'.", versionNumber, ext.Name),
			&extensionID, &version.ID)
		return err
	})
	if err != nil {
		// Compensate: the relational writes rolled back, so the artifact
		// written above must not survive as an orphan.
		if _, delErr := s.blobs.Delete(extensionID, versionNumber); delErr != nil {
			s.logger.Error("orphaned artifact could not be removed",
				"extension", extensionID, "version", versionNumber, "err", delErr)
		}
		return nil, err
	}

	s.cache.Flush()
	s.logger.Info("version uploaded", "extension", extensionID, "version", versionNumber)
	return version, nil
}

// ListVersions returns all versions of an extension, newest upload first.
// An existing extension with no uploads yields an empty list.
func (s *VersionService) ListVersions(extensionID uuid.UUID) ([]models.ExtensionVersion, error) {
	versions, err := s.store.ListVersionsByExtension(s.store.DB(), extensionID)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []models.ExtensionVersion{}
	}
	return versions, nil
}

// AllVersions returns every version across the marketplace, newest upload
// first. Review tooling uses this to surface the pending queue.
func (s *VersionService) AllVersions() ([]models.ExtensionVersion, error) {
	versions, err := s.store.ListAllVersions(s.store.DB())
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []models.ExtensionVersion{}
	}
	return versions, nil
}

// GetVersion returns a version by id, or store.ErrNotFound.
func (s *VersionService) GetVersion(versionID uuid.UUID) (*models.ExtensionVersion, error) {
	return s.store.GetVersion(s.store.DB(), versionID)
}

// VersionByNumber returns the newest version carrying the given number under
// the extension, or store.ErrNotFound.
func (s *VersionService) VersionByNumber(extensionID uuid.UUID, versionNumber string) (*models.ExtensionVersion, error) {
	return s.store.GetVersionByNumber(s.store.DB(), extensionID, versionNumber)
}

// UpdateStatus moves a version to the given review status. Any status is
// reachable from any status; the review workflow has never restricted
// re-review, so no transition table is enforced here. Restricted to admins.
//
// The audit entry is attributed to the owning extension's author, not the
// acting reviewer. That is long-standing recorded behavior and downstream
// audit consumers key on it, so it is reproduced as-is.
func (s *VersionService) UpdateStatus(versionID uuid.UUID, status models.VersionStatus, actor models.Actor) (*models.ExtensionVersion, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown version status %q", ErrValidation, status)
	}
	version, err := s.store.GetVersion(s.store.DB(), versionID)
	if err != nil {
		return nil, err
	}
	if !models.HasRole(actor.Roles, models.RoleAdmin) {
		return nil, ErrForbidden
	}

	attributedTo := models.AnonymousID
	if ext, err := s.store.GetExtension(s.store.DB(), version.ExtensionID); err == nil {
		attributedTo = ext.AuthorID
	}

	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.UpdateVersionStatus(tx, versionID, status); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionVersionStatusUpdated, attributedTo,
			fmt.Sprintf("Updated extension version status to %s", status),
			&version.ExtensionID, &version.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	version.Status = status
	s.cache.Flush()
	s.logger.Info("version status updated", "version", versionID, "status", status)
	return version, nil
}

// IncrementDownloadCount bumps a version's download counter and records the
// anonymous download, atomically. Returns false (not an error) when the
// version id is unknown. The counter update is a single relative UPDATE so
// concurrent downloads never lose increments.
func (s *VersionService) IncrementDownloadCount(versionID uuid.UUID) (bool, error) {
	version, err := s.store.GetVersion(s.store.DB(), versionID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	extensionName := ""
	if ext, err := s.store.GetExtension(s.store.DB(), version.ExtensionID); err == nil {
		extensionName = ext.Name
	}

	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		ok, err := s.store.IncrementDownloadCount(tx, versionID)
		if err != nil {
			return err
		}
		if !ok {
			// Deleted between the fetch above and this update.
			return fmt.Errorf("version %s: %w", versionID, store.ErrNotFound)
		}
		_, err = s.audit.RecordIn(tx, models.ActionExtensionDownloaded, models.AnonymousID,
			fmt.Sprintf("Version %s of extension '%s' downloaded.", version.VersionNumber, extensionName),
			&version.ExtensionID, &version.ID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsCompatible answers whether the extension's most recently uploaded
// published version supports the given host version. False when nothing is
// published. The range check is the documented substring containment rule.
func (s *VersionService) IsCompatible(extensionID uuid.UUID, hostVersion string) (bool, error) {
	latest, err := s.store.LatestPublishedVersion(s.store.DB(), extensionID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return VersionInRange(hostVersion, latest.HostVersionSupport), nil
}
