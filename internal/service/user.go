package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/QuestFinTech/ext-market/internal/models"
	"github.com/QuestFinTech/ext-market/internal/store"
)

// UserService manages accounts and role assignment. The lifecycle managers
// treat users as resource owners only; everything here is the collaborator
// side of the marketplace.
type UserService struct {
	store  *store.Store
	audit  *AuditLogService
	logger *log.Logger
}

// NewUserService creates a UserService.
func NewUserService(st *store.Store, audit *AuditLogService, logger *log.Logger) *UserService {
	return &UserService{store: st, audit: audit, logger: logger}
}

// Create registers an account. Username and email must be unique; the
// password is bcrypt-hashed before it touches the store.
func (s *UserService) Create(username, email, password string, roles []models.Role) (*models.User, error) {
	if _, err := s.store.GetUserByEmail(s.store.DB(), email); err == nil {
		return nil, fmt.Errorf("%w: email is already in use", ErrValidation)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetUserByUsername(s.store.DB(), username); err == nil {
		return nil, fmt.Errorf("%w: username is already taken", ErrValidation)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    now,
		LastLogin:    now,
	}

	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.InsertUser(tx, user); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionUserCreated, user.ID,
			fmt.Sprintf("User %s created with roles %s.", username, rolesText(roles)), nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", "id", user.ID, "username", username)
	return user, nil
}

func rolesText(roles []models.Role) string {
	text := ""
	for i, r := range roles {
		if i > 0 {
			text += ", "
		}
		text += string(r)
	}
	return text
}

// GetByID returns the user together with their created extensions.
func (s *UserService) GetByID(id uuid.UUID) (*models.User, []models.Extension, error) {
	user, err := s.store.GetUser(s.store.DB(), id)
	if err != nil {
		return nil, nil, err
	}
	extensions, err := s.store.ListExtensionsByAuthor(s.store.DB(), id)
	if err != nil {
		return nil, nil, err
	}
	return user, extensions, nil
}

// GetByEmail returns the user, or store.ErrNotFound.
func (s *UserService) GetByEmail(email string) (*models.User, error) {
	return s.store.GetUserByEmail(s.store.DB(), email)
}

// All returns every account.
func (s *UserService) All() ([]models.User, error) {
	return s.store.ListUsers(s.store.DB())
}

// Update changes username and email, re-checking uniqueness against other
// accounts.
func (s *UserService) Update(id uuid.UUID, username, email string) (*models.User, error) {
	user, err := s.store.GetUser(s.store.DB(), id)
	if err != nil {
		return nil, err
	}

	if other, err := s.store.GetUserByEmail(s.store.DB(), email); err == nil && other.ID != id {
		return nil, fmt.Errorf("%w: email is already in use", ErrValidation)
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if other, err := s.store.GetUserByUsername(s.store.DB(), username); err == nil && other.ID != id {
		return nil, fmt.Errorf("%w: username is already taken", ErrValidation)
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user.Username = username
	user.Email = email

	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.UpdateUser(tx, user); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionUserUpdated, user.ID,
			fmt.Sprintf("User %s updated.", user.Username), nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the account. Extensions authored by the user are kept; the
// audit entry is attributed to the anonymous sentinel since the acting user
// row no longer exists. Returns false for an unknown id.
func (s *UserService) Delete(id uuid.UUID) (bool, error) {
	user, err := s.store.GetUser(s.store.DB(), id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	username := user.Username
	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.DeleteUser(tx, id); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionUserDeleted, models.AnonymousID,
			fmt.Sprintf("User %s with ID %s deleted.", username, id), nil, nil)
		return err
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("user deleted", "id", id, "username", username)
	return true, nil
}

// AddRole grants a role. Idempotent: granting an already-held role is a
// successful no-op. Returns false for an unknown id.
func (s *UserService) AddRole(id uuid.UUID, role models.Role) (bool, error) {
	user, err := s.store.GetUser(s.store.DB(), id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if models.HasRole(user.Roles, role) {
		return true, nil
	}

	roles := append(user.Roles, role)
	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.UpdateUserRoles(tx, id, roles); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionUserRoleAdded, id,
			fmt.Sprintf("Role %s added to user %s.", role, user.Username), nil, nil)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveRole revokes a role. Idempotent like AddRole.
func (s *UserService) RemoveRole(id uuid.UUID, role models.Role) (bool, error) {
	user, err := s.store.GetUser(s.store.DB(), id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !models.HasRole(user.Roles, role) {
		return true, nil
	}

	roles := make([]models.Role, 0, len(user.Roles))
	for _, r := range user.Roles {
		if r != role {
			roles = append(roles, r)
		}
	}
	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.UpdateUserRoles(tx, id, roles); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionUserRoleRemoved, id,
			fmt.Sprintf("Role %s removed from user %s.", role, user.Username), nil, nil)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ValidateCredentials checks an email/password pair. On success it stamps
// last_login, records the login, and returns the user; otherwise
// ErrInvalidCredentials regardless of which half failed.
func (s *UserService) ValidateCredentials(email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(s.store.DB(), email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	err = s.store.WithTx(func(tx *sqlx.Tx) error {
		if err := s.store.UpdateLastLogin(tx, user.ID, now); err != nil {
			return err
		}
		_, err := s.audit.RecordIn(tx, models.ActionUserLogin, user.ID,
			fmt.Sprintf("User %s logged in.", user.Username), nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	user.LastLogin = now
	return user, nil
}
