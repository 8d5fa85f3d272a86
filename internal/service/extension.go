package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"

	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/storage"
	"github.com/QuestFinTech/ext-market/internal/store"
)

// ExtensionService manages extension records and orchestrates the cascading
// version and artifact cleanup when one is deleted.
type ExtensionService struct {
	store  *store.Store
	blobs  storage.Store
	audit  *AuditLogService
	cache  *cache.Cache
	logger *log.Logger
}

// NewExtensionService creates an ExtensionService. The cache fronts the
// anonymous list/search reads and is flushed on every mutation; pass the
// same instance to NewVersionService so version mutations invalidate it too.
func NewExtensionService(st *store.Store, blobs storage.Store, audit *AuditLogService, c *cache.Cache, logger *log.Logger) *ExtensionService {
	return &ExtensionService{store: st, blobs: blobs, audit: audit, cache: c, logger: logger}
}

// Create inserts a new extension with no versions and returns the hydrated
// entity. The extension row and its audit entry commit atomically.
func (s *ExtensionService) Create(name, description string, authorID uuid.UUID, tags []string) (*models.Extension, error) {
	now := time.Now().UTC()
	ext := &models.Extension{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		AuthorID:    authorID,
		Tags:        tags,
		CreatedAt:   now,
		LastUpdated: now,
	}

	err := s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.InsertExtension(tx, ext); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionExtensionCreated, authorID,
			fmt.Sprintf("Extension '%s' created.", name), &ext.ID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Flush()
	s.logger.Info("extension created", "id", ext.ID, "name", name, "author", authorID)
	return s.Get(ext.ID)
}

// Update overwrites name, description, and tags, bumps last_updated, and
// returns the hydrated entity. The author never changes.
func (s *ExtensionService) Update(id uuid.UUID, name, description string, tags []string, actor models.Actor) (*models.Extension, error) {
	ext, err := s.store.GetExtension(s.store.DB(), id)
	if err != nil {
		return nil, err
	}
	if !CanModify(actor.ID, actor.Roles, ext.AuthorID) {
		return nil, ErrForbidden
	}

	ext.Name = name
	ext.Description = description
	ext.Tags = tags
	ext.LastUpdated = time.Now().UTC()

	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.UpdateExtension(tx, ext); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionExtensionUpdated, ext.AuthorID,
			fmt.Sprintf("Extension '%s' updated.", ext.Name), &ext.ID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Flush()
	return s.Get(id)
}

// Delete removes an extension, its version rows, and its stored artifacts.
// Artifact deletion is best-effort and happens before the transaction; a
// missing blob is not an error. The version deletes, the extension delete,
// and the single audit entry (attributed to the original author, captured
// before the row goes away) commit atomically.
func (s *ExtensionService) Delete(id uuid.UUID, actor models.Actor) (bool, error) {
	ext, err := s.store.GetExtension(s.store.DB(), id)
	if err != nil {
		return false, err
	}
	if !CanModify(actor.ID, actor.Roles, ext.AuthorID) {
		return false, ErrForbidden
	}

	versions, err := s.store.ListVersionsByExtension(s.store.DB(), id)
	if err != nil {
		return false, err
	}
	for _, v := range versions {
		if _, err := s.blobs.Delete(id, v.VersionNumber); err != nil {
			s.logger.Warn("artifact delete failed during extension delete",
				"extension", id, "version", v.VersionNumber, "err", err)
		}
	}

	authorID := ext.AuthorID
	name := ext.Name
	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.DeleteVersionsByExtension(tx, id); err != nil {
			return err
		}
		if err := s.store.DeleteExtension(tx, id); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionExtensionDeleted, authorID,
			fmt.Sprintf("Extension '%s' deleted.", name), &id, nil)
		return err
	})
	if err != nil {
		return false, err
	}

	s.cache.Flush()
	s.logger.Info("extension deleted", "id", id, "name", name)
	return true, nil
}

// Get returns the extension hydrated with its author and full version
// history, newest upload first.
func (s *ExtensionService) Get(id uuid.UUID) (*models.Extension, error) {
	ext, err := s.store.GetExtension(s.store.DB(), id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ext, true); err != nil {
		return nil, err
	}
	return ext, nil
}

// ListAll returns every extension hydrated with its author and only the
// single most recent version, for list-view efficiency.
func (s *ExtensionService) ListAll() ([]models.Extension, error) {
	const key = "extensions:all"
	if hit, ok := s.cache.Get(key); ok {
		return hit.([]models.Extension), nil
	}
	exts, err := s.store.ListExtensions(s.store.DB())
	if err != nil {
		return nil, err
	}
	if err := s.hydrateSummaries(exts); err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, exts)
	return exts, nil
}

// ByAuthor returns the author's extensions, hydrated like ListAll.
func (s *ExtensionService) ByAuthor(authorID uuid.UUID) ([]models.Extension, error) {
	exts, err := s.store.ListExtensionsByAuthor(s.store.DB(), authorID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateSummaries(exts); err != nil {
		return nil, err
	}
	return exts, nil
}

// Search filters extensions by a case-insensitive substring of name or
// description and, when tags are given, by a non-empty tag intersection.
// Both filters compose with AND.
func (s *ExtensionService) Search(term string, tags []string) ([]models.Extension, error) {
	key := "extensions:search:" + strings.ToLower(term) + ":" + strings.Join(tags, ",")
	if hit, ok := s.cache.Get(key); ok {
		return hit.([]models.Extension), nil
	}

	exts, err := s.store.SearchExtensions(s.store.DB(), term)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		filtered := exts[:0]
		for _, e := range exts {
			if intersects(e.Tags, tags) {
				filtered = append(filtered, e)
			}
		}
		exts = filtered
	}
	if err := s.hydrateSummaries(exts); err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, exts)
	return exts, nil
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// hydrate attaches the author (nil when the account no longer exists) and
// either the full version history or just the most recent version.
func (s *ExtensionService) hydrate(ext *models.Extension, fullHistory bool) error {
	author, err := s.store.GetUser(s.store.DB(), ext.AuthorID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	ext.Author = author

	if fullHistory {
		versions, err := s.store.ListVersionsByExtension(s.store.DB(), ext.ID)
		if err != nil {
			return err
		}
		ext.Versions = versions
		if ext.Versions == nil {
			ext.Versions = []models.ExtensionVersion{}
		}
		return nil
	}

	latest, err := s.store.LatestVersionByExtension(s.store.DB(), ext.ID)
	if errors.Is(err, store.ErrNotFound) {
		ext.Versions = []models.ExtensionVersion{}
		return nil
	}
	if err != nil {
		return err
	}
	ext.Versions = []models.ExtensionVersion{*latest}
	return nil
}

func (s *ExtensionService) hydrateSummaries(exts []models.Extension) error {
	for i := range exts {
		if err := s.hydrate(&exts[i], false); err != nil {
			return err
		}
	}
	return nil
}
