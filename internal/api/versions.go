package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/QuestFinTech/ext-market/internal/models"
)

// maxUploadBytes caps the in-memory portion of a multipart artifact upload.
const maxUploadBytes = 64 << 20

func (a *API) handleListVersions(w http.ResponseWriter, r *http.Request) {
	extensionID, err := uuid.Parse(mux.Vars(r)["extensionId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid extension id")
		return
	}
	versions, err := a.versions.ListVersions(extensionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}

func (a *API) handleAllVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := a.versions.AllVersions()
	if err != nil {
		a.logger.Error("list all versions", "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}

// handleAddVersion accepts a multipart form with the artifact under "file"
// and the metadata as form fields.
func (a *API) handleAddVersion(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no authenticated actor")
		return
	}
	extensionID, err := uuid.Parse(mux.Vars(r)["extensionId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid extension id")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	versionNumber := strings.TrimSpace(r.FormValue("version_number"))
	if versionNumber == "" {
		respondError(w, http.StatusBadRequest, "version_number is required")
		return
	}
	hostSupport := r.FormValue("host_version_support")
	releaseNotes := r.FormValue("release_notes")

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "artifact file is required")
		return
	}
	defer file.Close()

	version, err := a.versions.AddVersion(extensionID, versionNumber, hostSupport, releaseNotes, file, actor)
	if err != nil {
		a.logger.Error("add version", "extension_id", extensionID, "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, version)
}

type versionStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleUpdateVersionStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "no authenticated actor")
		return
	}
	versionID, err := uuid.Parse(mux.Vars(r)["versionId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid version id")
		return
	}
	var req versionStatusRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}
	version, err := a.versions.UpdateStatus(versionID, models.VersionStatus(req.Status), actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, version)
}

// handleDownloadVersion serves the stored artifact for a published version
// and bumps its download counter. The route is anonymous; downloads are
// recorded in the audit trail without an actor.
func (a *API) handleDownloadVersion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	extensionID, err := uuid.Parse(vars["extensionId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid extension id")
		return
	}
	versionNumber := vars["versionNumber"]

	version, err := a.versions.VersionByNumber(extensionID, versionNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if version.Status != models.StatusPublished {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	artifact, err := a.blobs.Fetch(extensionID, versionNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Counting is best effort; the download is served either way.
	if _, err := a.versions.IncrementDownloadCount(version.ID); err != nil {
		a.logger.Warn("record download", "version_id", version.ID, "error", err)
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Content)
}
