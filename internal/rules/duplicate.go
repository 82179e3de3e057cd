package rules

import (
	"context"
	"sort"
	"strings"

	"jobtriage-engine/internal/domain"
)

// conditionKey normalizes one condition for set comparison. Value case and
// the case_sensitive flag are ignored, matching how the engine evaluates.
func conditionKey(c domain.RuleCondition) string {
	return string(c.Field) + "\x00" + string(c.MatchType) + "\x00" + strings.ToLower(c.Value)
}

// conditionSet returns the rule's conditions as a sorted key list. Order and
// duplicates within a rule do not distinguish rules.
func conditionSet(r *domain.Rule) []string {
	keys := make([]string, 0, len(r.Conditions))
	seen := make(map[string]bool, len(r.Conditions))
	for _, c := range r.Conditions {
		k := conditionKey(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sameConditionSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FindDuplicate returns the first of the owner's rules with the same match
// mode and target status whose condition set equals candidate's, ignoring
// condition order, or nil when none exists. Rules differing in mode or target
// behave differently and are not duplicates, whatever their conditions.
// excludeID skips the rule being edited so it does not collide with itself.
func (s *Service) FindDuplicate(ctx context.Context, candidate *domain.Rule, excludeID string) (*domain.Rule, error) {
	existing, err := s.db.ListRules(ctx, candidate.Owner)
	if err != nil {
		return nil, err
	}
	want := conditionSet(candidate)
	for _, r := range existing {
		if r.ID == excludeID {
			continue
		}
		if r.MatchMode != candidate.MatchMode || r.TargetStatus != candidate.TargetStatus {
			continue
		}
		if sameConditionSet(want, conditionSet(r)) {
			return r, nil
		}
	}
	return nil, nil
}
