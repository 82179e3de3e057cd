package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobtriage-engine/internal/domain"
)

func sampleJob() *domain.Job {
	return &domain.Job{
		Title:        "Senior Software Engineer",
		Description:  "We use Go and Kubernetes in production.",
		URL:          "https://boards.example/jobs/42",
		Company:      domain.Company{Name: "Acme Robotics"},
		LocationName: "Berlin",
	}
}

func TestConditionMatches(t *testing.T) {
	job := sampleJob()

	cases := []struct {
		name string
		cond domain.RuleCondition
		want bool
	}{
		{"contains is case-insensitive", domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchContains, Value: "ENGINEER"}, true},
		{"contains miss", domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchContains, Value: "intern"}, false},
		{"exact is case-insensitive", domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchExact, Value: "senior software engineer"}, true},
		{"exact needs whole value", domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchExact, Value: "engineer"}, false},
		{"not_contains", domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchNotContains, Value: "intern"}, true},
		{"not_contains miss", domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchNotContains, Value: "Senior"}, false},
		{"regex partial match", domain.RuleCondition{Field: domain.FieldDescription, MatchType: domain.MatchRegex, Value: `go\b`}, true},
		{"regex is case-insensitive", domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchRegex, Value: `^senior`}, true},
		{"invalid regex matches nothing", domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchRegex, Value: `[invalid`}, false},
		{"company field", domain.RuleCondition{Field: domain.FieldCompany, MatchType: domain.MatchContains, Value: "acme"}, true},
		{"location field", domain.RuleCondition{Field: domain.FieldLocation, MatchType: domain.MatchExact, Value: "berlin"}, true},
		{"url field", domain.RuleCondition{Field: domain.FieldURL, MatchType: domain.MatchContains, Value: "boards.example"}, true},
		{"unknown field reads empty", domain.RuleCondition{Field: "salary", MatchType: domain.MatchContains, Value: "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ConditionMatches(tc.cond, job))
		})
	}
}

func TestConditionMatchesMissingRelations(t *testing.T) {
	job := &domain.Job{Title: "Engineer"}

	// No company, no location: contains/exact never match, not_contains does.
	assert.False(t, ConditionMatches(domain.RuleCondition{Field: domain.FieldCompany, MatchType: domain.MatchContains, Value: "acme"}, job))
	assert.False(t, ConditionMatches(domain.RuleCondition{Field: domain.FieldLocation, MatchType: domain.MatchExact, Value: "berlin"}, job))
	assert.True(t, ConditionMatches(domain.RuleCondition{Field: domain.FieldCompany, MatchType: domain.MatchNotContains, Value: "acme"}, job))
}

func TestRuleMatchesZeroConditionsNeverFires(t *testing.T) {
	job := sampleJob()

	for _, mode := range []domain.MatchMode{domain.MatchAll, domain.MatchAny} {
		r := &domain.Rule{MatchMode: mode}
		assert.False(t, RuleMatches(r, job), "mode %s", mode)
	}
}

func TestRuleMatchesModes(t *testing.T) {
	job := sampleJob()
	hit := domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchContains, Value: "engineer"}
	miss := domain.RuleCondition{Field: domain.FieldTitle, MatchType: domain.MatchContains, Value: "designer"}

	assert.True(t, RuleMatches(&domain.Rule{MatchMode: domain.MatchAll, Conditions: []domain.RuleCondition{hit, hit}}, job))
	assert.False(t, RuleMatches(&domain.Rule{MatchMode: domain.MatchAll, Conditions: []domain.RuleCondition{hit, miss}}, job))
	assert.True(t, RuleMatches(&domain.Rule{MatchMode: domain.MatchAny, Conditions: []domain.RuleCondition{miss, hit}}, job))
	assert.False(t, RuleMatches(&domain.Rule{MatchMode: domain.MatchAny, Conditions: []domain.RuleCondition{miss, miss}}, job))
}
