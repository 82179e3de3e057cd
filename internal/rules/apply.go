package rules

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/lifecycle"
	"jobtriage-engine/internal/store"
)

type Service struct {
	db        *store.DB
	lifecycle *lifecycle.Service
	log       *zap.SugaredLogger
}

func NewService(db *store.DB, lc *lifecycle.Service, log *zap.SugaredLogger) *Service {
	return &Service{db: db, lifecycle: lc, log: log.Named("rules")}
}

// ApplyToJob runs the owner's active rules against the job in priority order
// and applies the first one that fires: status change plus audit record.
// Jobs that are no longer in new or saved are left untouched. Returns true
// when a rule changed the job.
func (s *Service) ApplyToJob(ctx context.Context, job *domain.Job) (bool, error) {
	if !job.Status.Eligible() {
		return false, nil
	}
	active, err := s.db.ListActiveRules(ctx, job.Owner)
	if err != nil {
		return false, err
	}
	return s.applyFirst(ctx, job, active)
}

// ApplyAll runs the owner's active rules over every new and saved job,
// first match wins per job. Returns the number of jobs changed.
func (s *Service) ApplyAll(ctx context.Context, owner string) (int, error) {
	active, err := s.db.ListActiveRules(ctx, owner)
	if err != nil {
		return 0, err
	}
	return s.applyBatch(ctx, owner, active)
}

// ApplyRule runs a single rule over the owner's new and saved jobs. Used when
// a rule is created or edited, to retroactively triage the existing pool.
func (s *Service) ApplyRule(ctx context.Context, r *domain.Rule) (int, error) {
	if !r.IsActive {
		return 0, nil
	}
	return s.applyBatch(ctx, r.Owner, []*domain.Rule{r})
}

func (s *Service) applyBatch(ctx context.Context, owner string, rls []*domain.Rule) (int, error) {
	jobs, err := s.db.ListJobsByStatus(ctx, owner, domain.EligibleStatuses, false)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, job := range jobs {
		hit, err := s.applyFirst(ctx, job, rls)
		if err != nil {
			s.log.Warnw("rule application failed", "job_id", job.ID, "err", err)
			continue
		}
		if hit {
			changed++
		}
	}
	return changed, nil
}

func (s *Service) applyFirst(ctx context.Context, job *domain.Job, rls []*domain.Rule) (bool, error) {
	for _, r := range rls {
		if !RuleMatches(r, job) {
			continue
		}
		old := job.Status
		if err := s.lifecycle.UpdateStatus(ctx, job, r.TargetStatus); err != nil {
			return false, err
		}
		// The winning rule always leaves an audit record, even when the
		// target equals the current status and the transition no-ops.
		m := domain.RuleMatch{
			RuleID:    r.ID,
			JobID:     job.ID,
			OldStatus: old,
			NewStatus: r.TargetStatus,
			CreatedAt: time.Now().UTC(),
		}
		changed := old != r.TargetStatus
		if err := s.db.InsertRuleMatch(ctx, &m); err != nil {
			return changed, err
		}
		return changed, nil
	}
	return false, nil
}
