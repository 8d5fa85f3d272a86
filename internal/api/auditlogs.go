package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func (a *API) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := a.audit.All()
	if err != nil {
		a.logger.Error("list audit logs", "error", err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (a *API) handleGetAuditLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid audit log id")
		return
	}
	entry, err := a.audit.ByID(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (a *API) handleAuditLogsByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["userId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	entries, err := a.audit.ByUser(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (a *API) handleAuditLogsByExtension(w http.ResponseWriter, r *http.Request) {
	extensionID, err := uuid.Parse(mux.Vars(r)["extensionId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid extension id")
		return
	}
	entries, err := a.audit.ByExtension(extensionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// handleAuditLogsByDateRange expects RFC 3339 start and end query
// parameters, both inclusive.
func (a *API) handleAuditLogsByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start (want RFC 3339)")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end (want RFC 3339)")
		return
	}
	entries, err := a.audit.ByDateRange(start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
