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

const userColumns = `id, username, email, password_hash, roles, created_at, last_login`

type userRow struct {
	models.User
	RolesCSV string `db:"roles"`
}

func (r userRow) toModel() models.User {
	u := r.User
	for _, tag := range splitList(r.RolesCSV) {
		u.Roles = append(u.Roles, models.ParseRole(tag))
	}
	return u
}

func rolesCSV(roles []models.Role) string {
	tags := make([]string, 0, len(roles))
	for _, r := range roles {
		tags = append(tags, string(r))
	}
	return joinList(tags)
}

// InsertUser writes a new user row. Duplicate usernames and emails surface
// as the driver's unique-constraint error.
func (s *Store) InsertUser(q sqlx.Ext, u *models.User) error {
	_, err := q.Exec(
		`INSERT INTO users (id, username, email, password_hash, roles, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, rolesCSV(u.Roles), u.CreatedAt, u.LastLogin,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(q sqlx.Queryer, id uuid.UUID) (*models.User, error) {
	return s.getUser(q, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail fetches a user by email.
func (s *Store) GetUserByEmail(q sqlx.Queryer, email string) (*models.User, error) {
	return s.getUser(q, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetUserByUsername fetches a user by username.
func (s *Store) GetUserByUsername(q sqlx.Queryer, username string) (*models.User, error) {
	return s.getUser(q, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *Store) getUser(q sqlx.Queryer, query string, arg any) (*models.User, error) {
	var row userRow
	err := sqlx.Get(q, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u := row.toModel()
	return &u, nil
}

// ListUsers returns all users, newest account first.
func (s *Store) ListUsers(q sqlx.Queryer) ([]models.User, error) {
	var rows []userRow
	err := sqlx.Select(q, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toModel())
	}
	return users, nil
}

// UserExists reports whether a user row matches the username or email,
// excluding the given id (uuid.Nil to exclude nothing).
func (s *Store) UserExists(q sqlx.Queryer, username, email string, excludeID uuid.UUID) (bool, error) {
	var n int
	err := sqlx.Get(q, &n,
		`SELECT COUNT(*) FROM users WHERE (username = ? OR email = ?) AND id != ?`,
		username, email, excludeID)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return n > 0, nil
}

// UpdateUser overwrites username and email.
func (s *Store) UpdateUser(q sqlx.Ext, u *models.User) error {
	res, err := q.Exec(`UPDATE users SET username = ?, email = ? WHERE id = ?`, u.Username, u.Email, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	return nil
}

// UpdateUserRoles overwrites the role set.
func (s *Store) UpdateUserRoles(q sqlx.Ext, id uuid.UUID, roles []models.Role) error {
	res, err := q.Exec(`UPDATE users SET roles = ? WHERE id = ?`, rolesCSV(roles), id)
	if err != nil {
		return fmt.Errorf("update user roles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user roles rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateLastLogin stamps a successful credential check.
func (s *Store) UpdateLastLogin(q sqlx.Ext, id uuid.UUID, at time.Time) error {
	if _, err := q.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// DeleteUser removes the account row. Extensions keep their author_id
// reference; deleting a user does not delete their extensions.
func (s *Store) DeleteUser(q sqlx.Ext, id uuid.UUID) error {
	res, err := q.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}
