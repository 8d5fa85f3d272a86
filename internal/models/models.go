// Package models defines the entities persisted by the marketplace and the
// typed role/status vocabularies shared across the store, service, and API
// layers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user capability tag.
type Role string

const (
	RoleUser      Role = "user"
	RoleDeveloper Role = "developer"
	RoleReviewer  Role = "reviewer"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a stored role tag to its typed value. Unknown tags come back
// as-is so a bad row is visible instead of silently dropped.
func ParseRole(s string) Role { return Role(s) }

// Valid reports whether r is one of the known capability tags.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDeveloper, RoleReviewer, RoleAdmin:
		return true
	}
	return false
}

// HasRole reports whether the role set contains r.
func HasRole(roles []Role, r Role) bool {
	for _, have := range roles {
		if have == r {
			return true
		}
	}
	return false
}

// VersionStatus is the review state of an extension version.
type VersionStatus string

const (
	StatusPending   VersionStatus = "pending"
	StatusPublished VersionStatus = "published"
	StatusRejected  VersionStatus = "rejected"
)

// Valid reports whether s is one of the known review states.
func (s VersionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation, resolved by
// the routing/auth layer and handed to the services.
type Actor struct {
	ID    uuid.UUID
	Roles []Role
}

// AnonymousID is the sentinel actor id recorded for system or anonymous
// actions (downloads, user deletion).
var AnonymousID = uuid.Nil

// User is a registered account. PasswordHash is owned by the auth
// collaborator and never leaves the server.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Roles        []Role    `db:"-" json:"roles"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastLogin    time.Time `db:"last_login" json:"last_login"`
}

// Extension is a publishable add-on record owned by one author. AuthorID is
// immutable after creation; LastUpdated advances on any mutation of the
// extension or of its versions.
type Extension struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	AuthorID    uuid.UUID `db:"author_id" json:"author_id"`
	Tags        []string  `db:"-" json:"tags"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`

	// Hydrated relations, not columns.
	Author   *User              `db:"-" json:"author,omitempty"`
	Versions []ExtensionVersion `db:"-" json:"versions"`
}

// ExtensionVersion is one artifact submission under an extension. Versions
// start pending and move through review via an explicit status update.
type ExtensionVersion struct {
	ID                 uuid.UUID     `db:"id" json:"id"`
	ExtensionID        uuid.UUID     `db:"extension_id" json:"extension_id"`
	VersionNumber      string        `db:"version_number" json:"version_number"`
	HostVersionSupport string        `db:"host_version_support" json:"host_version_support"`
	ReleaseNotes       string        `db:"release_notes" json:"release_notes"`
	DownloadURL        string        `db:"download_url" json:"download_url"`
	Status             VersionStatus `db:"status" json:"status"`
	UploadedAt         time.Time     `db:"uploaded_at" json:"uploaded_at"`
	DownloadCount      int64         `db:"download_count" json:"download_count"`
}

// AuditLog is one immutable row in the append-only audit trail. ExtensionID
// and ExtensionVersionID reference entities by id without requiring their
// continued existence.
type AuditLog struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Action             string     `db:"action" json:"action"`
	UserID             uuid.UUID  `db:"user_id" json:"user_id"`
	Timestamp          time.Time  `db:"timestamp" json:"timestamp"`
	Details            string     `db:"details" json:"details"`
	ExtensionID        *uuid.UUID `db:"extension_id" json:"extension_id,omitempty"`
	ExtensionVersionID *uuid.UUID `db:"extension_version_id" json:"extension_version_id,omitempty"`
}

// Audit action tags. Fixed vocabulary; values are recorded verbatim in the
// audit trail and must not change once rows exist.
const (
	ActionExtensionCreated     = "ExtensionCreated"
	ActionExtensionUpdated     = "ExtensionUpdated"
	ActionExtensionDeleted     = "ExtensionDeleted"
	ActionVersionCreated       = "ExtensionVersionCreated"
	ActionVersionStatusUpdated = "UpdateExtensionVersionStatus"
	ActionExtensionDownloaded  = "ExtensionDownloaded"
	ActionUserCreated          = "UserCreated"
	ActionUserUpdated          = "UserUpdated"
	ActionUserDeleted          = "UserDeleted"
	ActionUserRoleAdded        = "UserRoleAdded"
	ActionUserRoleRemoved      = "UserRoleRemoved"
	ActionUserLogin            = "UserLogin"
)
