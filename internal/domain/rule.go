package domain

import "time"

type MatchMode string

const (
	MatchAll MatchMode = "all" // every condition must match
	MatchAny MatchMode = "any" // at least one condition must match
)

type ConditionField string

const (
	FieldTitle       ConditionField = "title"
	FieldDescription ConditionField = "description"
	FieldCompany     ConditionField = "company"
	FieldLocation    ConditionField = "location"
	FieldURL         ConditionField = "url"
)

type MatchType string

const (
	MatchContains    MatchType = "contains"
	MatchExact       MatchType = "exact"
	MatchRegex       MatchType = "regex"
	MatchNotContains MatchType = "not_contains"
)

// Rule is a user-defined triage rule. Higher priority rules are evaluated
// first; ties are broken by name.
type Rule struct {
	ID           string
	Owner        string
	Name         string
	IsActive     bool
	MatchMode    MatchMode
	TargetStatus JobStatus
	Priority     int

	Conditions []RuleCondition
}

type RuleCondition struct {
	ID        string
	RuleID    string
	Field     ConditionField
	MatchType MatchType
	Value     string

	// CaseSensitive is stored for forward compatibility but is not consulted:
	// non-regex comparisons are always case-insensitive and regex matching
	// always carries (?i). See rules.ConditionMatches.
	CaseSensitive bool
}

// RuleMatch is an append-only audit record of a rule firing on a job.
type RuleMatch struct {
	ID        string
	RuleID    string
	JobID     string
	OldStatus JobStatus
	NewStatus JobStatus
	CreatedAt time.Time
}
