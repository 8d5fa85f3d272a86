package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/QuestFinTech/ext-market/internal/models"
)

const extensionColumns = `id, name, description, author_id, tags, created_at, last_updated`

// extensionRow adds the comma-joined tags column to the entity for scanning.
type extensionRow struct {
	models.Extension
	TagsCSV string `db:"tags"`
}

func (r extensionRow) toModel() models.Extension {
	e := r.Extension
	e.Tags = splitList(r.TagsCSV)
	return e
}

// InsertExtension writes a new extension row.
func (s *Store) InsertExtension(q sqlx.Ext, e *models.Extension) error {
	_, err := q.Exec(
		`INSERT INTO extensions (id, name, description, author_id, tags, created_at, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Description, e.AuthorID, joinList(e.Tags), e.CreatedAt, e.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("insert extension: %w", err)
	}
	return nil
}

// GetExtension fetches a bare extension row (no author, no versions).
func (s *Store) GetExtension(q sqlx.Queryer, id uuid.UUID) (*models.Extension, error) {
	var row extensionRow
	err := sqlx.Get(q, &row, `SELECT `+extensionColumns+` FROM extensions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extension %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get extension: %w", err)
	}
	e := row.toModel()
	return &e, nil
}

// UpdateExtension overwrites the mutable fields (name, description, tags)
// and the last_updated stamp. The author is immutable and never written.
func (s *Store) UpdateExtension(q sqlx.Ext, e *models.Extension) error {
	res, err := q.Exec(
		`UPDATE extensions SET name = ?, description = ?, tags = ?, last_updated = ? WHERE id = ?`,
		e.Name, e.Description, joinList(e.Tags), e.LastUpdated, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update extension: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update extension rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("extension %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

// TouchExtension advances last_updated, used when a version mutation belongs
// to the extension.
func (s *Store) TouchExtension(q sqlx.Ext, id uuid.UUID, at time.Time) error {
	if _, err := q.Exec(`UPDATE extensions SET last_updated = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("touch extension: %w", err)
	}
	return nil
}

// DeleteExtension removes the extension row only. Child versions are removed
// explicitly by DeleteVersionsByExtension inside the same transaction.
func (s *Store) DeleteExtension(q sqlx.Ext, id uuid.UUID) error {
	res, err := q.Exec(`DELETE FROM extensions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete extension: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete extension rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("extension %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListExtensions returns all bare extension rows, most recently updated
// first.
func (s *Store) ListExtensions(q sqlx.Queryer) ([]models.Extension, error) {
	return s.selectExtensions(q, `SELECT `+extensionColumns+` FROM extensions ORDER BY last_updated DESC, rowid DESC`)
}

// ListExtensionsByAuthor returns the author's bare extension rows.
func (s *Store) ListExtensionsByAuthor(q sqlx.Queryer, authorID uuid.UUID) ([]models.Extension, error) {
	return s.selectExtensions(q,
		`SELECT `+extensionColumns+` FROM extensions WHERE author_id = ? ORDER BY last_updated DESC, rowid DESC`,
		authorID)
}

// SearchExtensions returns extensions whose name or description contains
// term, case-insensitively. An empty term matches everything; tag filtering
// happens in the service where the tag set is in its native form.
func (s *Store) SearchExtensions(q sqlx.Queryer, term string) ([]models.Extension, error) {
	if term == "" {
		return s.ListExtensions(q)
	}
	pattern := "%" + term + "%"
	return s.selectExtensions(q,
		`SELECT `+extensionColumns+` FROM extensions
		 WHERE name LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE
		 ORDER BY last_updated DESC, rowid DESC`,
		pattern, pattern)
}

func (s *Store) selectExtensions(q sqlx.Queryer, query string, args ...any) ([]models.Extension, error) {
	var rows []extensionRow
	if err := sqlx.Select(q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select extensions: %w", err)
	}
	out := make([]models.Extension, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
