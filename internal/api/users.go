package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/QuestFinTech/ext-market/internal/auth"
	"github.com/QuestFinTech/ext-market/internal/models"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// handleRegisterUser creates an account. Self-registered accounts get the
// developer role so they can publish immediately; admins grant further roles
// through the role endpoints.
func (a *API) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	user, err := a.users.Create(req.Username, req.Email, req.Password, []models.Role{models.RoleDeveloper})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// handleLogin verifies credentials and issues a bearer token.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	user, err := a.users.ValidateCredentials(req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	token, err := auth.NewToken(a.signingKey, user, a.tokenTTL)
	if err != nil {
		a.logger.Error("issue token", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.All()
	if err != nil {
		a.logger.Error("list users", "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, extensions, err := a.users.GetByID(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":       user,
		"extensions": extensions,
	})
}

// handleUpdateUser lets a user change their own profile; admins can change
// anyone's.
func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no authenticated actor")
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if actor.ID != id && !models.HasRole(actor.Roles, models.RoleAdmin) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "username and email are required")
		return
	}
	user, err := a.users.Update(id, req.Username, req.Email)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	deleted, err := a.users.Delete(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondNoContent(w)
}

func (a *API) handleAddUserRole(w http.ResponseWriter, r *http.Request) {
	a.handleUserRoleChange(w, r, a.users.AddRole)
}

func (a *API) handleRemoveUserRole(w http.ResponseWriter, r *http.Request) {
	a.handleUserRoleChange(w, r, a.users.RemoveRole)
}

func (a *API) handleUserRoleChange(w http.ResponseWriter, r *http.Request, change func(uuid.UUID, models.Role) (bool, error)) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req roleRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	role := models.ParseRole(req.Role)
	if !role.Valid() {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}
	changed, err := change(id, role)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}
