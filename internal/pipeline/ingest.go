package pipeline

import (
	"context"
	"strings"
	"time"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/scrape"
)

// ingestLead upserts a raw lead into the store: company and location by
// natural key, then the job by (owner, url). Leads missing a required field
// are dropped without error. Returns whether a new job row was created.
func (r *Runner) ingestLead(ctx context.Context, owner, runID string, lead domain.JobLead) (bool, error) {
	if lead.CompanyName == "" || lead.Title == "" || lead.URL == "" || lead.DatePosted == nil {
		return false, nil
	}

	canonical := scrape.CanonicalURL(lead.CompanyURL)
	if canonical == "" {
		// Boards that never link the company page still need a stable key.
		canonical = "name:" + strings.ToLower(strings.TrimSpace(lead.CompanyName))
	}
	company, _, err := r.db.GetOrCreateCompany(ctx, owner, lead.CompanyName, canonical)
	if err != nil {
		return false, err
	}

	var locID, locName string
	if lead.Location != "" {
		loc, err := r.db.GetOrCreateLocation(ctx, lead.Location)
		if err != nil {
			return false, err
		}
		locID, locName = loc.ID, loc.Name
	}

	found := lead.DateFound
	if found == nil {
		now := time.Now().UTC()
		found = &now
	}
	job := &domain.Job{
		Owner:        owner,
		Title:        lead.Title,
		URL:          lead.URL,
		Company:      company,
		LocationID:   locID,
		LocationName: locName,
		DatePosted:   lead.DatePosted,
		DateFound:    found,
		Description:  lead.Description,
		SearchRunID:  runID,
	}
	created, err := r.db.CreateJobIfNew(ctx, job)
	if err != nil || !created {
		return false, err
	}

	// Triage new arrivals immediately so obvious rejects never show up as
	// actionable. The batch sweep later in the run catches rule edits.
	if _, err := r.rules.ApplyToJob(ctx, job); err != nil {
		r.log.Warnw("rule triage on ingest failed", "job_id", job.ID, "err", err)
	}
	return true, nil
}
