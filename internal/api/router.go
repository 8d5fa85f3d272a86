// Package api is the HTTP routing layer. It parses requests, resolves the
// actor from the bearer token, forwards to the lifecycle services, and maps
// typed failures onto status codes. No business rules live here.
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/QuestFinTech/ext-market/internal/config"
	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/service"
	"github.com/QuestFinTech/ext-market/internal/storage"
)

// API bundles the services behind the HTTP surface.
type API struct {
	extensions *service.ExtensionService
	versions   *service.VersionService
	users      *service.UserService
	audit      *service.AuditLogService
	blobs      storage.Store
	signingKey []byte
	tokenTTL   time.Duration
	logger     *log.Logger
}

// New creates the API layer.
func New(
	extensions *service.ExtensionService,
	versions *service.VersionService,
	users *service.UserService,
	audit *service.AuditLogService,
	blobs storage.Store,
	signingKey []byte,
	tokenTTL time.Duration,
	logger *log.Logger,
) *API {
	return &API{
		extensions: extensions,
		versions:   versions,
		users:      users,
		audit:      audit,
		blobs:      blobs,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// SetupRoutes registers every endpoint on the router. Reads are anonymous;
// extension/version mutations need Developer or Admin; review, user
// administration, and the audit trail need Admin.
func (a *API) SetupRoutes(router *mux.Router) {
	dev := []models.Role{models.RoleDeveloper, models.RoleAdmin}
	admin := []models.Role{models.RoleAdmin}

	router.HandleFunc("/status", a.handleGetStatus).Methods("GET")

	// Extensions.
	router.HandleFunc("/extensions", a.handleListExtensions).Methods("GET")
	router.HandleFunc("/extensions", a.authorized(a.handleCreateExtension, dev...)).Methods("POST")
	router.HandleFunc("/extensions/search", a.handleSearchExtensions).Methods("GET")
	router.HandleFunc("/extensions/author/{authorId}", a.handleExtensionsByAuthor).Methods("GET")
	router.HandleFunc("/extensions/compatibility/{extensionId}", a.handleCheckCompatibility).Methods("GET")

	// Versions (fixed prefixes before the {id} routes so mux matches them).
	router.HandleFunc("/extensions/versions/all", a.authorized(a.handleAllVersions, admin...)).Methods("GET")
	router.HandleFunc("/extensions/versions/{versionId}/status", a.authorized(a.handleUpdateVersionStatus, admin...)).Methods("PUT")

	router.HandleFunc("/extensions/{id}", a.handleGetExtension).Methods("GET")
	router.HandleFunc("/extensions/{id}", a.authorized(a.handleUpdateExtension, dev...)).Methods("PUT")
	router.HandleFunc("/extensions/{id}", a.authorized(a.handleDeleteExtension, dev...)).Methods("DELETE")

	router.HandleFunc("/extensions/{extensionId}/versions", a.handleListVersions).Methods("GET")
	router.HandleFunc("/extensions/{extensionId}/versions", a.authorized(a.handleAddVersion, dev...)).Methods("POST")
	router.HandleFunc("/extensions/{extensionId}/versions/{versionNumber}/download", a.handleDownloadVersion).Methods("GET")

	// Users.
	router.HandleFunc("/users", a.authorized(a.handleListUsers, admin...)).Methods("GET")
	router.HandleFunc("/users", a.handleRegisterUser).Methods("POST")
	router.HandleFunc("/users/login", a.handleLogin).Methods("POST")
	router.HandleFunc("/users/{id}", a.authorized(a.handleGetUser)).Methods("GET")
	router.HandleFunc("/users/{id}", a.authorized(a.handleUpdateUser)).Methods("PUT")
	router.HandleFunc("/users/{id}", a.authorized(a.handleDeleteUser, admin...)).Methods("DELETE")
	router.HandleFunc("/users/{id}/roles", a.authorized(a.handleAddUserRole, admin...)).Methods("POST")
	router.HandleFunc("/users/{id}/roles", a.authorized(a.handleRemoveUserRole, admin...)).Methods("DELETE")

	// Audit trail.
	router.HandleFunc("/auditlogs", a.authorized(a.handleListAuditLogs, admin...)).Methods("GET")
	router.HandleFunc("/auditlogs/daterange", a.authorized(a.handleAuditLogsByDateRange, admin...)).Methods("GET")
	router.HandleFunc("/auditlogs/user/{userId}", a.authorized(a.handleAuditLogsByUser, admin...)).Methods("GET")
	router.HandleFunc("/auditlogs/extension/{extensionId}", a.authorized(a.handleAuditLogsByExtension, admin...)).Methods("GET")
	router.HandleFunc("/auditlogs/{id}", a.authorized(a.handleGetAuditLog, admin...)).Methods("GET")
}

func (a *API) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.ServerVersion,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
