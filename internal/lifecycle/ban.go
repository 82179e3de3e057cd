package lifecycle

import (
	"context"
	"time"

	"jobtriage-engine/internal/domain"
)

// BanCompany marks the company banned and cascades: every job at the company
// currently in new or saved moves to banned, each remembering where it came
// from. Statuses representing user engagement (applied, interviewing, ...)
// are left alone.
func (s *Service) BanCompany(ctx context.Context, c *domain.Company, reason string) error {
	now := time.Now().UTC()
	c.IsBanned = true
	c.BannedAt = &now
	c.BanReason = reason
	if err := s.db.SaveCompanyBan(ctx, *c); err != nil {
		return err
	}

	jobs, err := s.db.ListCompanyJobsByStatus(ctx, c.ID, domain.EligibleStatuses)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if err := s.UpdateStatus(ctx, j, domain.StatusBanned); err != nil {
			return err
		}
	}
	return nil
}

// UnbanCompany lifts the ban and restores each banned job to its pre-ban
// status, or to new when no snapshot was taken.
func (s *Service) UnbanCompany(ctx context.Context, c *domain.Company) error {
	c.IsBanned = false
	c.BannedAt = nil
	c.BanReason = ""
	if err := s.db.SaveCompanyBan(ctx, *c); err != nil {
		return err
	}

	jobs, err := s.db.ListCompanyJobsByStatus(ctx, c.ID, []domain.JobStatus{domain.StatusBanned})
	if err != nil {
		return err
	}
	for _, j := range jobs {
		restore := j.PreBanStatus
		if restore == "" {
			restore = domain.StatusNew
		}
		if err := s.UpdateStatus(ctx, j, restore); err != nil {
			return err
		}
	}
	return nil
}

// BanSweep bans any of the owner's jobs that slipped past a company ban,
// typically jobs ingested for a company banned mid-run. Returns the number of
// jobs moved.
func (s *Service) BanSweep(ctx context.Context, owner string) (int, error) {
	jobs, err := s.db.ListJobsWithBannedCompany(ctx, owner)
	if err != nil {
		return 0, err
	}
	banned := 0
	for _, j := range jobs {
		if !j.Status.Eligible() {
			continue
		}
		if err := s.UpdateStatus(ctx, j, domain.StatusBanned); err != nil {
			s.log.Warnw("ban sweep failed for job", "job_id", j.ID, "err", err)
			continue
		}
		banned++
	}
	return banned, nil
}
