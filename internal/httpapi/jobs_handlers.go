package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"jobtriage-engine/internal/domain"
)

type JobsHandler struct {
	Deps
}

// List handles GET /jobs?status=new,saved&populated=1.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var statuses []domain.JobStatus
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if !domain.ValidJobStatus(s) {
				WriteError(w, r, http.StatusBadRequest, "bad_status", "unknown status "+s)
				return
			}
			statuses = append(statuses, domain.JobStatus(s))
		}
	}

	jobs, err := h.DB.ListJobsByStatus(r.Context(), h.Owner, statuses, q.Get("populated") == "1")
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobView(j))
	}
	WriteJSON(w, http.StatusOK, out)
}

// ByPath routes /jobs/{id}, /jobs/{id}/status, /jobs/{id}/events and
// /jobs/{id}/notes.
func (h JobsHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/jobs/")
	if len(parts) == 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_path", "job id required")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, id)
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		h.setStatus(w, r, id)
	case len(parts) == 2 && parts[1] == "events" && r.Method == http.MethodGet:
		h.listEvents(w, r, id)
	case len(parts) == 2 && parts[1] == "notes" && r.Method == http.MethodGet:
		h.listNotes(w, r, id)
	case len(parts) == 2 && parts[1] == "notes" && r.Method == http.MethodPost:
		h.addNote(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h JobsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.DB.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "job not found")
		return
	}
	WriteJSON(w, http.StatusOK, toJobView(job))
}

func (h JobsHandler) setStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if !domain.ValidJobStatus(req.Status) {
		WriteError(w, r, http.StatusBadRequest, "bad_status", "unknown status "+req.Status)
		return
	}

	job, err := h.DB.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "job not found")
		return
	}

	from := job.Status
	if err := h.Lifecycle.UpdateStatus(r.Context(), job, domain.JobStatus(req.Status)); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if from != job.Status {
		h.Hub.JobStatusChanged(RequestIDFrom(r.Context()), job.ID, from, job.Status)
	}
	WriteJSON(w, http.StatusOK, toJobView(job))
}

func (h JobsHandler) listEvents(w http.ResponseWriter, r *http.Request, id string) {
	evs, err := h.DB.ListJobEvents(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	type eventView struct {
		From string    `json:"from"`
		To   string    `json:"to"`
		At   time.Time `json:"at"`
	}
	out := make([]eventView, 0, len(evs))
	for _, ev := range evs {
		out = append(out, eventView{
			From: string(ev.OldStatus),
			To:   string(ev.NewStatus),
			At:   ev.CreatedAt.UTC(),
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h JobsHandler) listNotes(w http.ResponseWriter, r *http.Request, id string) {
	notes, err := h.DB.ListJobNotes(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	out := make([]noteView, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteView(n))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h JobsHandler) addNote(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "text required")
		return
	}
	note, err := h.DB.AddJobNote(r.Context(), id, req.Text)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, toNoteView(note))
}
