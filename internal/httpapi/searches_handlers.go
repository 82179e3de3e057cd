package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/scrape"
)

type SearchesHandler struct {
	Deps
}

func (h SearchesHandler) List(w http.ResponseWriter, r *http.Request) {
	searches, err := h.DB.ListSearches(r.Context(), h.Owner)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	out := make([]searchView, 0, len(searches))
	for _, s := range searches {
		out = append(out, toSearchView(s))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h SearchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}
	if err := h.DB.CreateSearch(r.Context(), s); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, toSearchView(s))
}

// ByPath routes /searches/{id}, /searches/{id}/execute and
// /searches/{id}/runs.
func (h SearchesHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/searches/")
	if len(parts) == 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_path", "search id required")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.update(w, r, id)
	case len(parts) == 2 && parts[1] == "execute" && r.Method == http.MethodPost:
		h.execute(w, r, id)
	case len(parts) == 2 && parts[1] == "runs" && r.Method == http.MethodGet:
		h.listRuns(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h SearchesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	s, err := h.DB.GetSearch(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "search not found")
		return
	}
	WriteJSON(w, http.StatusOK, toSearchView(s))
}

func (h SearchesHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.DB.GetSearch(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "search not found")
		return
	}
	s, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}
	s.ID = existing.ID
	s.Status = existing.Status
	if err := h.DB.UpdateSearch(r.Context(), s); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, toSearchView(s))
}

// execute queues a manual pipeline run. An already queued or running search
// reports 202 with started=false rather than an error.
func (h SearchesHandler) execute(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.DB.GetSearch(r.Context(), id); err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "search not found")
		return
	}
	started, err := h.Runner.Execute(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "execute_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

func (h SearchesHandler) listRuns(w http.ResponseWriter, r *http.Request, id string) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	runs, err := h.DB.ListSearchRuns(r.Context(), id, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunView(run))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h SearchesHandler) decodeSearch(w http.ResponseWriter, r *http.Request) (*domain.Search, bool) {
	var req searchPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return nil, false
	}
	if strings.TrimSpace(req.Keywords) == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_search", "keywords required")
		return nil, false
	}
	known := false
	for _, src := range scrape.Sources() {
		if src == req.Source {
			known = true
			break
		}
	}
	if !known {
		WriteError(w, r, http.StatusBadRequest, "bad_search", "unknown source "+req.Source)
		return nil, false
	}

	s := &domain.Search{
		Owner:     h.Owner,
		Keywords:  strings.TrimSpace(req.Keywords),
		EasyApply: req.EasyApply,
		IsOnsite:  req.IsOnsite,
		IsRemote:  req.IsRemote,
		IsHybrid:  req.IsHybrid,
		Source:    req.Source,
		IsActive:  req.IsActive == nil || *req.IsActive,
		Schedule:  strings.TrimSpace(req.Schedule),
	}
	if req.Location != "" {
		loc, err := h.DB.GetOrCreateLocation(r.Context(), req.Location)
		if err != nil {
			WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
			return nil, false
		}
		s.LocationID = loc.ID
		s.LocationName = loc.Name
		s.GeoCode = loc.GeoCode
	}
	return s, true
}
