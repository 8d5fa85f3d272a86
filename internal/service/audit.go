package service

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/store"
)

// AuditLogService is the append-only recorder of every mutating action.
// Entries are assigned a fresh id and server-clock UTC timestamp and are
// never updated or deleted.
type AuditLogService struct {
	store  *store.Store
	logger *log.Logger
}

// NewAuditLogService creates an AuditLogService.
func NewAuditLogService(st *store.Store, logger *log.Logger) *AuditLogService {
	return &AuditLogService{store: st, logger: logger}
}

// Record appends one entry in its own transaction scope (a direct write on
// the handle). Mutating services that need the entry inside their own
// transaction use RecordIn.
func (s *AuditLogService) Record(action string, actorID uuid.UUID, details string, extensionID, versionID *uuid.UUID) (*models.AuditLog, error) {
	return s.RecordIn(s.store.DB(), action, actorID, details, extensionID, versionID)
}

// RecordIn appends one entry through q, which is either the database handle
// or an open transaction.
func (s *AuditLogService) RecordIn(q sqlx.Ext, action string, actorID uuid.UUID, details string, extensionID, versionID *uuid.UUID) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		ID:                 uuid.New(),
		Action:             action,
		UserID:             actorID,
		Timestamp:          time.Now().UTC(),
		Details:            details,
		ExtensionID:        extensionID,
		ExtensionVersionID: versionID,
	}
	if err := s.store.InsertAuditLog(q, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// All returns every entry, newest first.
func (s *AuditLogService) All() ([]models.AuditLog, error) {
	return s.store.ListAuditLogs(s.store.DB())
}

// ByID returns a single entry, or store.ErrNotFound.
func (s *AuditLogService) ByID(id uuid.UUID) (*models.AuditLog, error) {
	return s.store.GetAuditLog(s.store.DB(), id)
}

// ByUser returns the actor's entries, newest first.
func (s *AuditLogService) ByUser(userID uuid.UUID) ([]models.AuditLog, error) {
	return s.store.ListAuditLogsByUser(s.store.DB(), userID)
}

// ByExtension returns the extension's entries, newest first.
func (s *AuditLogService) ByExtension(extensionID uuid.UUID) ([]models.AuditLog, error) {
	return s.store.ListAuditLogsByExtension(s.store.DB(), extensionID)
}

// ByDateRange returns entries within [start, end], newest first, failing
// with ErrInvalidDateRange when start is after end.
func (s *AuditLogService) ByDateRange(start, end time.Time) ([]models.AuditLog, error) {
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}
	return s.store.ListAuditLogsByDateRange(s.store.DB(), start, end)
}
