package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/service"
	"github.com/QuestFinTech/ext-market/internal/store"
)

func TestAuditRecordAndGet(t *testing.T) {
	f := newFixture(t)
	actorID := uuid.New()
	extID := uuid.New()

	entry, err := f.audit.Record(models.ActionExtensionCreated, actorID, "Extension 'X' created.", &extID, nil)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, entry.ID)
	require.WithinDuration(t, time.Now().UTC(), entry.Timestamp, time.Minute)

	got, err := f.audit.ByID(entry.ID)
	require.NoError(t, err)
	require.Equal(t, entry.Action, got.Action)
	require.Equal(t, entry.Details, got.Details)
	require.Equal(t, &extID, got.ExtensionID)
	require.Nil(t, got.ExtensionVersionID)
}

func TestAuditByIDUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.audit.ByID(uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuditFilters(t *testing.T) {
	f := newFixture(t)
	alice := uuid.New()
	bob := uuid.New()
	ext := uuid.New()

	_, err := f.audit.Record(models.ActionExtensionCreated, alice, "a", &ext, nil)
	require.NoError(t, err)
	_, err = f.audit.Record(models.ActionUserLogin, bob, "b", nil, nil)
	require.NoError(t, err)
	_, err = f.audit.Record(models.ActionExtensionUpdated, alice, "c", &ext, nil)
	require.NoError(t, err)

	byUser, err := f.audit.ByUser(alice)
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	byExt, err := f.audit.ByExtension(ext)
	require.NoError(t, err)
	require.Len(t, byExt, 2)

	all, err := f.audit.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].Details, "listing is newest first")
}

func TestAuditByDateRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.audit.Record(models.ActionUserLogin, uuid.New(), "login", nil, nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	inRange, err := f.audit.ByDateRange(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, inRange, 1)

	outOfRange, err := f.audit.ByDateRange(now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Empty(t, outOfRange)
}

func TestAuditByDateRangeInverted(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	_, err := f.audit.ByDateRange(now, now.Add(-time.Hour))
	require.ErrorIs(t, err, service.ErrInvalidDateRange)
}
