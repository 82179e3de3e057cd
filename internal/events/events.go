package events

import (
	"encoding/json"
	"time"

	"jobtriage-engine/internal/domain"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

// Typed publishers for the UI event stream.

func (h *Hub) JobStatusChanged(reqID string, jobID string, from, to domain.JobStatus) {
	h.Publish(MakeEvent(reqID, "job.status_changed", 1, map[string]string{
		"job_id": jobID,
		"from":   string(from),
		"to":     string(to),
	}))
}

func (h *Hub) SearchRunFinished(reqID string, run *domain.SearchRun) {
	h.Publish(MakeEvent(reqID, "search.run_finished", 1, map[string]any{
		"run_id":       run.ID,
		"search_id":    run.SearchID,
		"status":       string(run.Status),
		"jobs_found":   run.JobsFound,
		"jobs_created": run.JobsCreated,
	}))
}

func (h *Hub) JobScored(reqID string, jobID string, score int) {
	h.Publish(MakeEvent(reqID, "job.scored", 1, map[string]any{
		"job_id": jobID,
		"score":  score,
	}))
}
