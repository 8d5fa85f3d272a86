package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type extensionRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (a *API) handleListExtensions(w http.ResponseWriter, r *http.Request) {
	extensions, err := a.extensions.ListAll()
	if err != nil {
		a.logger.Error("list extensions", "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, extensions)
}

func (a *API) handleGetExtension(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid extension id")
		return
	}
	extension, err := a.extensions.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, extension)
}

func (a *API) handleExtensionsByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, err := uuid.Parse(mux.Vars(r)["authorId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid author id")
		return
	}
	extensions, err := a.extensions.ByAuthor(authorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, extensions)
}

// handleSearchExtensions filters by a name/description term and an optional
// comma separated tag list; tags are ANDed with the term.
func (a *API) handleSearchExtensions(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	extensions, err := a.extensions.Search(term, tags)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, extensions)
}

func (a *API) handleCreateExtension(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no authenticated actor")
		return
	}
	var req extensionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "extension name is required")
		return
	}
	extension, err := a.extensions.Create(req.Name, req.Description, actor.ID, req.Tags)
	if err != nil {
		a.logger.Error("create extension", "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, extension)
}

func (a *API) handleUpdateExtension(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no authenticated actor")
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid extension id")
		return
	}
	var req extensionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "extension name is required")
		return
	}
	extension, err := a.extensions.Update(id, req.Name, req.Description, req.Tags, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, extension)
}

func (a *API) handleDeleteExtension(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no authenticated actor")
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid extension id")
		return
	}
	deleted, err := a.extensions.Delete(id, actor)
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

// handleCheckCompatibility reports whether the latest published version of
// the extension supports the host version passed as ?hostVersion=.
func (a *API) handleCheckCompatibility(w http.ResponseWriter, r *http.Request) {
	extensionID, err := uuid.Parse(mux.Vars(r)["extensionId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid extension id")
		return
	}
	hostVersion := r.URL.Query().Get("hostVersion")
	if hostVersion == "" {
		respondError(w, http.StatusBadRequest, "hostVersion query parameter is required")
		return
	}
	compatible, err := a.versions.IsCompatible(extensionID, hostVersion)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"extension_id": extensionID,
		"host_version": hostVersion,
		"compatible":   compatible,
	})
}
