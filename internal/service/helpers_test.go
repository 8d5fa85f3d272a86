package service_test

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"

	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/service"
	"github.com/QuestFinTech/ext-market/internal/storage"
	"github.com/QuestFinTech/ext-market/internal/store"
	"github.com/QuestFinTech/ext-market/internal/testutil"
)

// fixture wires the full service stack against an in-memory database and a
// temp-dir blob store.
type fixture struct {
	store      *store.Store
	blobs      *storage.DiskStore
	audit      *service.AuditLogService
	extensions *service.ExtensionService
	versions   *service.VersionService
	users      *service.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewTestStore(t)
	blobs := testutil.NewTestBlobStore(t)
	logger := log.New(io.Discard)
	c := cache.New(time.Minute, time.Minute)

	audit := service.NewAuditLogService(st, logger)
	return &fixture{
		store:      st,
		blobs:      blobs,
		audit:      audit,
		extensions: service.NewExtensionService(st, blobs, audit, c, logger),
		versions:   service.NewVersionService(st, blobs, audit, c, logger),
		users:      service.NewUserService(st, audit, logger),
	}
}

// newAuthor inserts a developer account and returns it with its actor.
func (f *fixture) newAuthor(t *testing.T, username string) (*models.User, models.Actor) {
	t.Helper()
	user, err := f.users.Create(username, username+"@example.com", "secret", []models.Role{models.RoleDeveloper})
	require.NoError(t, err)
	return user, models.Actor{ID: user.ID, Roles: user.Roles}
}

func (f *fixture) newAdmin(t *testing.T, username string) (*models.User, models.Actor) {
	t.Helper()
	user, err := f.users.Create(username, username+"@example.com", "secret", []models.Role{models.RoleAdmin})
	require.NoError(t, err)
	return user, models.Actor{ID: user.ID, Roles: user.Roles}
}

// auditEntries returns the trail entries with the given action, filtered
// client-side so tests assert exact counts.
func (f *fixture) auditEntries(t *testing.T, action string) []models.AuditLog {
	t.Helper()
	all, err := f.audit.All()
	require.NoError(t, err)
	var matched []models.AuditLog
	for _, entry := range all {
		if entry.Action == action {
			matched = append(matched, entry)
		}
	}
	return matched
}

func (f *fixture) createExtension(t *testing.T, author models.Actor, name string, tags ...string) *models.Extension {
	t.Helper()
	ext, err := f.extensions.Create(name, "description of "+name, author.ID, tags)
	require.NoError(t, err)
	return ext
}

func (f *fixture) addVersion(t *testing.T, actor models.Actor, extensionID uuid.UUID, number, hostSupport string) *models.ExtensionVersion {
	t.Helper()
	version, err := f.versions.AddVersion(extensionID, number, hostSupport, "notes",
		strings.NewReader("artifact-"+number), actor)
	require.NoError(t, err)
	return version
}
