package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"jobtriage-engine/internal/domain"
)

type RulesHandler struct {
	Deps
}

func (h RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	rls, err := h.DB.ListRules(r.Context(), h.Owner)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	out := make([]ruleView, 0, len(rls))
	for _, rl := range rls {
		out = append(out, toRuleView(rl))
	}
	WriteJSON(w, http.StatusOK, out)
}

// Create rejects a rule whose condition set duplicates an existing rule's
// with 409 and the existing rule's identity, so the UI can point at it.
func (h RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.decodeRule(w, r, "")
	if !ok {
		return
	}
	if err := h.DB.CreateRule(r.Context(), rule); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, toRuleView(rule))
}

// ApplyAll runs every active rule over the eligible pool.
func (h RulesHandler) ApplyAll(w http.ResponseWriter, r *http.Request) {
	changed, err := h.Rules.ApplyAll(r.Context(), h.Owner)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "apply_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"jobs_changed": changed})
}

// ByPath routes /rules/{id} and /rules/{id}/apply.
func (h RulesHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/rules/")
	if len(parts) == 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_path", "rule id required")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.update(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case len(parts) == 2 && parts[1] == "apply" && r.Method == http.MethodPost:
		h.apply(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h RulesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rule, err := h.DB.GetRule(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "rule not found")
		return
	}
	WriteJSON(w, http.StatusOK, toRuleView(rule))
}

func (h RulesHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.DB.GetRule(r.Context(), id); err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "rule not found")
		return
	}
	rule, ok := h.decodeRule(w, r, id)
	if !ok {
		return
	}
	rule.ID = id
	if err := h.DB.UpdateRule(r.Context(), rule); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, toRuleView(rule))
}

func (h RulesHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.DB.DeleteRule(r.Context(), id); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apply runs one rule over the eligible pool, used after creating or editing
// a rule to catch jobs already ingested.
func (h RulesHandler) apply(w http.ResponseWriter, r *http.Request, id string) {
	rule, err := h.DB.GetRule(r.Context(), id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "rule not found")
		return
	}
	changed, err := h.Rules.ApplyRule(r.Context(), rule)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "apply_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"jobs_changed": changed})
}

// decodeRule validates the payload and checks the duplicate guard. excludeID
// is the rule being edited, "" on create.
func (h RulesHandler) decodeRule(w http.ResponseWriter, r *http.Request, excludeID string) (*domain.Rule, bool) {
	var req rulePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return nil, false
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_rule", "name required")
		return nil, false
	}
	if !domain.ValidJobStatus(req.TargetStatus) {
		WriteError(w, r, http.StatusBadRequest, "bad_rule", "unknown target status "+req.TargetStatus)
		return nil, false
	}
	mode := domain.MatchMode(req.MatchMode)
	if mode != domain.MatchAll && mode != domain.MatchAny {
		WriteError(w, r, http.StatusBadRequest, "bad_rule", "match_mode must be all or any")
		return nil, false
	}

	rule := &domain.Rule{
		Owner:        h.Owner,
		Name:         req.Name,
		IsActive:     req.IsActive == nil || *req.IsActive,
		MatchMode:    mode,
		TargetStatus: domain.JobStatus(req.TargetStatus),
		Priority:     req.Priority,
	}
	for _, c := range req.Conditions {
		rule.Conditions = append(rule.Conditions, domain.RuleCondition{
			Field:     domain.ConditionField(c.Field),
			MatchType: domain.MatchType(c.MatchType),
			Value:     c.Value,
		})
	}

	dup, err := h.Rules.FindDuplicate(r.Context(), rule, excludeID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return nil, false
	}
	if dup != nil {
		WriteJSON(w, http.StatusConflict, map[string]string{
			"error":         "duplicate_rule",
			"existing_id":   dup.ID,
			"existing_name": dup.Name,
			"message":       "a rule with the same conditions already exists",
		})
		return nil, false
	}
	return rule, true
}
