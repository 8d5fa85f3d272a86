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

const auditColumns = `id, action, user_id, timestamp, details, extension_id, extension_version_id`

// InsertAuditLog appends one immutable audit row. There is deliberately no
// update or delete counterpart.
func (s *Store) InsertAuditLog(q sqlx.Ext, entry *models.AuditLog) error {
	_, err := q.Exec(
		`INSERT INTO audit_logs (id, action, user_id, timestamp, details, extension_id, extension_version_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.UserID, entry.Timestamp, entry.Details,
		entry.ExtensionID, entry.ExtensionVersionID,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// GetAuditLog fetches a single entry by id.
func (s *Store) GetAuditLog(q sqlx.Queryer, id uuid.UUID) (*models.AuditLog, error) {
	var entry models.AuditLog
	err := sqlx.Get(q, &entry, `SELECT `+auditColumns+` FROM audit_logs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("audit log %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get audit log: %w", err)
	}
	return &entry, nil
}

// ListAuditLogs returns every entry, newest first.
func (s *Store) ListAuditLogs(q sqlx.Queryer) ([]models.AuditLog, error) {
	return s.selectAuditLogs(q, `SELECT `+auditColumns+` FROM audit_logs ORDER BY timestamp DESC, rowid DESC`)
}

// ListAuditLogsByUser returns the actor's entries, newest first.
func (s *Store) ListAuditLogsByUser(q sqlx.Queryer, userID uuid.UUID) ([]models.AuditLog, error) {
	return s.selectAuditLogs(q,
		`SELECT `+auditColumns+` FROM audit_logs WHERE user_id = ? ORDER BY timestamp DESC, rowid DESC`,
		userID)
}

// ListAuditLogsByExtension returns the extension's entries, newest first.
func (s *Store) ListAuditLogsByExtension(q sqlx.Queryer, extensionID uuid.UUID) ([]models.AuditLog, error) {
	return s.selectAuditLogs(q,
		`SELECT `+auditColumns+` FROM audit_logs WHERE extension_id = ? ORDER BY timestamp DESC, rowid DESC`,
		extensionID)
}

// ListAuditLogsByDateRange returns entries with start <= timestamp <= end,
// newest first. Range validity is checked by the service.
func (s *Store) ListAuditLogsByDateRange(q sqlx.Queryer, start, end time.Time) ([]models.AuditLog, error) {
	return s.selectAuditLogs(q,
		`SELECT `+auditColumns+` FROM audit_logs WHERE timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp DESC, rowid DESC`,
		start, end)
}

func (s *Store) selectAuditLogs(q sqlx.Queryer, query string, args ...any) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	if err := sqlx.Select(q, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("select audit logs: %w", err)
	}
	return entries, nil
}
