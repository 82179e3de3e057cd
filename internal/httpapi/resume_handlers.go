package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"jobtriage-engine/internal/domain"
)

type ResumeHandler struct {
	Deps
}

type resumePayload struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (h ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	resume, err := h.DB.GetResume(r.Context(), h.Owner)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if resume == nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "no resume on file")
		return
	}
	WriteJSON(w, http.StatusOK, resumePayload{Name: resume.Name, Text: resume.Text})
}

func (h ResumeHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req resumePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_resume", "text required")
		return
	}
	resume := &domain.Resume{Owner: h.Owner, Name: req.Name, Text: req.Text}
	if err := h.DB.SaveResume(r.Context(), resume); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, resumePayload{Name: resume.Name, Text: resume.Text})
}
