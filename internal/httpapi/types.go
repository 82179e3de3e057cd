package httpapi

import (
	"time"

	"jobtriage-engine/internal/domain"
)

// Wire shapes. Kept separate from domain types so the UI contract does not
// drift with internal refactors.

type jobView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Company      string     `json:"company"`
	CompanyID    string     `json:"company_id"`
	Location     string     `json:"location,omitempty"`
	DatePosted   *time.Time `json:"date_posted,omitempty"`
	DateFound    *time.Time `json:"date_found,omitempty"`
	Populated    bool       `json:"populated"`
	Flexibility  string     `json:"flexibility,omitempty"`
	Description  string     `json:"description,omitempty"`
	EasyApply    bool       `json:"easy_apply"`
	Status       string     `json:"status"`
	StatusSince  *time.Time `json:"status_since,omitempty"`
	Score        *int       `json:"score,omitempty"`
	ScoreReason  string     `json:"score_reason,omitempty"`
	ScorePending bool       `json:"score_pending"`
}

func toJobView(j *domain.Job) jobView {
	return jobView{
		ID:           j.ID,
		Title:        j.Title,
		URL:          j.URL,
		Company:      j.Company.Name,
		CompanyID:    j.Company.ID,
		Location:     j.LocationName,
		DatePosted:   j.DatePosted,
		DateFound:    j.DateFound,
		Populated:    j.Populated,
		Flexibility:  string(j.Flexibility),
		Description:  j.Description,
		EasyApply:    j.EasyApply,
		Status:       string(j.Status),
		StatusSince:  j.DateStatusChanged,
		Score:        j.Score,
		ScoreReason:  j.ScoreExplanation,
		ScorePending: j.ScoreTaskID != "",
	}
}

type noteView struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func toNoteView(n domain.JobNote) noteView {
	return noteView{ID: n.ID, Text: n.Text, CreatedAt: n.CreatedAt}
}

type conditionPayload struct {
	Field     string `json:"field"`
	MatchType string `json:"match_type"`
	Value     string `json:"value"`
}

type rulePayload struct {
	Name         string             `json:"name"`
	IsActive     *bool              `json:"is_active,omitempty"`
	MatchMode    string             `json:"match_mode"`
	TargetStatus string             `json:"target_status"`
	Priority     int                `json:"priority"`
	Conditions   []conditionPayload `json:"conditions"`
}

type ruleView struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	IsActive     bool               `json:"is_active"`
	MatchMode    string             `json:"match_mode"`
	TargetStatus string             `json:"target_status"`
	Priority     int                `json:"priority"`
	Conditions   []conditionPayload `json:"conditions"`
}

func toRuleView(r *domain.Rule) ruleView {
	conds := make([]conditionPayload, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		conds = append(conds, conditionPayload{
			Field:     string(c.Field),
			MatchType: string(c.MatchType),
			Value:     c.Value,
		})
	}
	return ruleView{
		ID:           r.ID,
		Name:         r.Name,
		IsActive:     r.IsActive,
		MatchMode:    string(r.MatchMode),
		TargetStatus: string(r.TargetStatus),
		Priority:     r.Priority,
		Conditions:   conds,
	}
}

type searchPayload struct {
	Keywords  string `json:"keywords"`
	Location  string `json:"location,omitempty"`
	EasyApply bool   `json:"easy_apply"`
	IsOnsite  bool   `json:"is_onsite"`
	IsRemote  bool   `json:"is_remote"`
	IsHybrid  bool   `json:"is_hybrid"`
	Source    string `json:"source"`
	IsActive  *bool  `json:"is_active,omitempty"`
	Schedule  string `json:"schedule"`
}

type searchView struct {
	ID             string     `json:"id"`
	Keywords       string     `json:"keywords"`
	Location       string     `json:"location,omitempty"`
	EasyApply      bool       `json:"easy_apply"`
	IsOnsite       bool       `json:"is_onsite"`
	IsRemote       bool       `json:"is_remote"`
	IsHybrid       bool       `json:"is_hybrid"`
	Flexibility    string     `json:"flexibility,omitempty"`
	Source         string     `json:"source"`
	IsActive       bool       `json:"is_active"`
	Schedule       string     `json:"schedule"`
	Status         string     `json:"status"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`
}

func toSearchView(s *domain.Search) searchView {
	return searchView{
		ID:             s.ID,
		Keywords:       s.Keywords,
		Location:       s.LocationName,
		EasyApply:      s.EasyApply,
		IsOnsite:       s.IsOnsite,
		IsRemote:       s.IsRemote,
		IsHybrid:       s.IsHybrid,
		Flexibility:    string(s.Flexibility()),
		Source:         s.Source,
		IsActive:       s.IsActive,
		Schedule:       s.Schedule,
		Status:         string(s.Status),
		LastExecutedAt: s.LastExecutedAt,
	}
}

type runView struct {
	ID            string     `json:"id"`
	PeriodSeconds int64      `json:"period_seconds"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	JobsFound     int        `json:"jobs_found"`
	JobsCreated   int        `json:"jobs_created"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

func toRunView(run *domain.SearchRun) runView {
	return runView{
		ID:            run.ID,
		PeriodSeconds: int64(run.Period.Seconds()),
		Status:        string(run.Status),
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
		JobsFound:     run.JobsFound,
		JobsCreated:   run.JobsCreated,
		ErrorMessage:  run.ErrorMessage,
	}
}

type companyView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	URL       string     `json:"url"`
	IsBanned  bool       `json:"is_banned"`
	BannedAt  *time.Time `json:"banned_at,omitempty"`
	BanReason string     `json:"ban_reason,omitempty"`
}

func toCompanyView(c *domain.Company) companyView {
	return companyView{
		ID:        c.ID,
		Name:      c.Name,
		URL:       c.CanonicalURL,
		IsBanned:  c.IsBanned,
		BannedAt:  c.BannedAt,
		BanReason: c.BanReason,
	}
}
