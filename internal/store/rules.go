package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"jobtriage-engine/internal/domain"
)

// CreateRule inserts a rule and its conditions in one transaction.
// Duplicate detection happens in the rules service before this is called.
func (d *DB) CreateRule(ctx context.Context, r *domain.Rule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO rules(id, owner, name, is_active, match_mode, target_status, priority, created_at)
VALUES(?,?,?,?,?,?,?,?);`,
			r.ID, r.Owner, r.Name, boolToInt(r.IsActive), string(r.MatchMode),
			string(r.TargetStatus), r.Priority, fmtTime(time.Now())); err != nil {
			return errors.Wrap(err, "insert rule")
		}
		return insertConditions(ctx, tx, r)
	})
}

// UpdateRule rewrites the rule row and replaces its condition set.
func (d *DB) UpdateRule(ctx context.Context, r *domain.Rule) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE rules SET name = ?, is_active = ?, match_mode = ?, target_status = ?, priority = ?
WHERE id = ?;`,
			r.Name, boolToInt(r.IsActive), string(r.MatchMode), string(r.TargetStatus),
			r.Priority, r.ID); err != nil {
			return errors.Wrap(err, "update rule")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rule_conditions WHERE rule_id = ?;`, r.ID); err != nil {
			return errors.Wrap(err, "delete rule conditions")
		}
		return insertConditions(ctx, tx, r)
	})
}

func insertConditions(ctx context.Context, tx *sql.Tx, r *domain.Rule) error {
	for i := range r.Conditions {
		c := &r.Conditions[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.RuleID = r.ID
		if _, err := tx.ExecContext(ctx, `
INSERT INTO rule_conditions(id, rule_id, field, match_type, value, case_sensitive)
VALUES(?,?,?,?,?,?);`,
			c.ID, c.RuleID, string(c.Field), string(c.MatchType), c.Value,
			boolToInt(c.CaseSensitive)); err != nil {
			return errors.Wrap(err, "insert rule condition")
		}
	}
	return nil
}

func (d *DB) DeleteRule(ctx context.Context, id string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rule_conditions WHERE rule_id = ?;`, id); err != nil {
			return errors.Wrap(err, "delete rule conditions")
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM rules WHERE id = ?;`, id)
		return errors.Wrap(err, "delete rule")
	})
}

func (d *DB) GetRule(ctx context.Context, id string) (*domain.Rule, error) {
	rules, err := d.queryRules(ctx, `id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, sql.ErrNoRows
	}
	return rules[0], nil
}

// ListRules returns all of the owner's rules ordered by (-priority, name),
// conditions loaded.
func (d *DB) ListRules(ctx context.Context, owner string) ([]*domain.Rule, error) {
	return d.queryRules(ctx, `owner = ?`, owner)
}

// ListActiveRules returns the owner's active rules in evaluation order.
func (d *DB) ListActiveRules(ctx context.Context, owner string) ([]*domain.Rule, error) {
	return d.queryRules(ctx, `owner = ? AND is_active = 1`, owner)
}

func (d *DB) queryRules(ctx context.Context, where string, args ...any) ([]*domain.Rule, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, owner, name, is_active, match_mode, target_status, priority
FROM rules WHERE `+where+` ORDER BY priority DESC, name;`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list rules")
	}
	defer rows.Close()

	var out []*domain.Rule
	for rows.Next() {
		var (
			r      domain.Rule
			active int
			mode   string
			target string
		)
		if err := rows.Scan(&r.ID, &r.Owner, &r.Name, &active, &mode, &target, &r.Priority); err != nil {
			return nil, errors.Wrap(err, "scan rule")
		}
		r.IsActive = active != 0
		r.MatchMode = domain.MatchMode(mode)
		r.TargetStatus = domain.JobStatus(target)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range out {
		if err := d.loadConditions(ctx, r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *DB) loadConditions(ctx context.Context, r *domain.Rule) error {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, rule_id, field, match_type, value, case_sensitive
FROM rule_conditions WHERE rule_id = ?;`, r.ID)
	if err != nil {
		return errors.Wrap(err, "list rule conditions")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c            domain.RuleCondition
			field, match string
			caseSens     int
		)
		if err := rows.Scan(&c.ID, &c.RuleID, &field, &match, &c.Value, &caseSens); err != nil {
			return errors.Wrap(err, "scan rule condition")
		}
		c.Field = domain.ConditionField(field)
		c.MatchType = domain.MatchType(match)
		c.CaseSensitive = caseSens != 0
		r.Conditions = append(r.Conditions, c)
	}
	return rows.Err()
}

// InsertRuleMatch appends a rule-fired audit record.
func (d *DB) InsertRuleMatch(ctx context.Context, m *domain.RuleMatch) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO rule_matches(id, rule_id, job_id, old_status, new_status, created_at)
VALUES(?,?,?,?,?,?);`,
		m.ID, m.RuleID, m.JobID, string(m.OldStatus), string(m.NewStatus), fmtTime(m.CreatedAt))
	return errors.Wrap(err, "insert rule match")
}

func (d *DB) ListRuleMatches(ctx context.Context, jobID string) ([]domain.RuleMatch, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, rule_id, job_id, old_status, new_status, created_at
FROM rule_matches WHERE job_id = ? ORDER BY created_at DESC;`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, "list rule matches")
	}
	defer rows.Close()

	var out []domain.RuleMatch
	for rows.Next() {
		var (
			m        domain.RuleMatch
			from, to string
			at       string
		)
		if err := rows.Scan(&m.ID, &m.RuleID, &m.JobID, &from, &to, &at); err != nil {
			return nil, errors.Wrap(err, "scan rule match")
		}
		m.OldStatus = domain.JobStatus(from)
		m.NewStatus = domain.JobStatus(to)
		m.CreatedAt = parseTime(at)
		out = append(out, m)
	}
	return out, rows.Err()
}
