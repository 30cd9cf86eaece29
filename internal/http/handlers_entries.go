package http

import (
	"net/http"
	"strconv"

	"spry/internal/core"
	"spry/internal/services"
)

func pathID(r *http.Request, resource string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", "invalid "+resource+" id")
	}
	return id, nil
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	scope := services.ScopeAll
	switch r.URL.Query().Get("scope") {
	case "", "all":
	case "active":
		scope = services.ScopeActiveSession
	default:
		writeError(w, r, core.NewValidationError("scope", "scope must be all or active"))
		return
	}

	entries, err := s.svc.Entries.ListEntries(r.Context(), userID(r), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toNewEntry()
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.svc.Entries.CreateEntry(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEntryResponse(*entry))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "entry")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.svc.Entries.UpdateEntry(r.Context(), userID(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(*entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "entry")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Entries.DeleteEntry(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Entry deleted")
}
