// Package rules evaluates triage rules against jobs and applies the first
// winner. Matching is pure; application goes through the lifecycle service so
// the event log stays authoritative.
package rules

import (
	"regexp"
	"strings"

	"jobtriage-engine/internal/domain"
)

// fieldValue extracts the text a condition inspects. Unknown fields and
// missing relations read as empty, which no contains/exact/regex condition
// can match.
func fieldValue(j *domain.Job, f domain.ConditionField) string {
	switch f {
	case domain.FieldTitle:
		return j.Title
	case domain.FieldDescription:
		return j.Description
	case domain.FieldCompany:
		return j.Company.Name
	case domain.FieldLocation:
		return j.LocationName
	case domain.FieldURL:
		return j.URL
	}
	return ""
}

// ConditionMatches evaluates one condition against the job. All comparisons
// are case-insensitive; the stored case_sensitive flag is intentionally not
// consulted. A regex that fails to compile matches nothing.
func ConditionMatches(c domain.RuleCondition, j *domain.Job) bool {
	text := strings.ToLower(fieldValue(j, c.Field))
	value := strings.ToLower(c.Value)

	switch c.MatchType {
	case domain.MatchContains:
		return strings.Contains(text, value)
	case domain.MatchExact:
		return text == value
	case domain.MatchNotContains:
		return !strings.Contains(text, value)
	case domain.MatchRegex:
		re, err := regexp.Compile("(?i)" + c.Value)
		if err != nil {
			return false
		}
		return re.MatchString(fieldValue(j, c.Field))
	}
	return false
}

// RuleMatches reports whether the rule fires for the job. A rule with no
// conditions never fires, under either match mode.
func RuleMatches(r *domain.Rule, j *domain.Job) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		matched := ConditionMatches(c, j)
		if r.MatchMode == domain.MatchAny && matched {
			return true
		}
		if r.MatchMode != domain.MatchAny && !matched {
			return false
		}
	}
	return r.MatchMode != domain.MatchAny
}
