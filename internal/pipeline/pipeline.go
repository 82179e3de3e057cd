package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/events"
	"jobtriage-engine/internal/lifecycle"
	"jobtriage-engine/internal/rules"
	"jobtriage-engine/internal/score"
	"jobtriage-engine/internal/scrape"
	"jobtriage-engine/internal/store"
	"jobtriage-engine/internal/task"
)

// Queue handler names for the five stages, chained by task dependency.
const (
	TaskScrape   = "search.scrape"
	TaskRules    = "search.rules"
	TaskBanSweep = "search.bansweep"
	TaskPopulate = "search.populate"
	TaskScore    = "search.score"
)

type Runner struct {
	db        *store.DB
	queue     *task.Queue
	lifecycle *lifecycle.Service
	rules     *rules.Service
	score     *score.Service
	fetcher   scrape.Fetcher
	hub       *events.Hub
	log       *zap.SugaredLogger
}

func NewRunner(db *store.DB, queue *task.Queue, lc *lifecycle.Service,
	rl *rules.Service, sc *score.Service, fetcher scrape.Fetcher,
	hub *events.Hub, log *zap.SugaredLogger) *Runner {
	return &Runner{
		db:        db,
		queue:     queue,
		lifecycle: lc,
		rules:     rl,
		score:     sc,
		fetcher:   fetcher,
		hub:       hub,
		log:       log.Named("pipeline"),
	}
}

func (r *Runner) RegisterHandlers(reg *task.Registry) {
	reg.Register(TaskScrape, r.handleScrape)
	reg.Register(TaskRules, r.handleRules)
	reg.Register(TaskBanSweep, r.handleBanSweep)
	reg.Register(TaskPopulate, r.handlePopulate)
	reg.Register(TaskScore, r.handleScore)
}

type stagePayload struct {
	SearchID string `json:"search_id"`
	RunID    string `json:"run_id"`
}

// Execute queues a full pipeline run for the search. A search already queued
// or running is skipped, not an error; the returned bool says whether a run
// was started. The guard is check-then-set, which is acceptable because every
// downstream stage is idempotent.
func (r *Runner) Execute(ctx context.Context, searchID string) (bool, error) {
	s, err := r.db.GetSearch(ctx, searchID)
	if err != nil {
		return false, err
	}
	if s.Status == domain.SearchQueued || s.Status == domain.SearchRunning {
		r.log.Infow("search already in progress", "search_id", s.ID, "status", s.Status)
		return false, nil
	}

	run := &domain.SearchRun{
		SearchID: s.ID,
		Period:   StalenessPeriod(s.LastExecutedAt, time.Now().UTC()),
	}
	if err := r.db.CreateSearchRun(ctx, run); err != nil {
		return false, err
	}
	if err := r.db.SetSearchStatus(ctx, s.ID, domain.SearchQueued); err != nil {
		return false, err
	}

	payload := stagePayload{SearchID: s.ID, RunID: run.ID}
	prev := ""
	for _, handler := range []string{TaskScrape, TaskRules, TaskBanSweep, TaskPopulate, TaskScore} {
		id, err := r.queue.EnqueueAfter(ctx, handler, payload, prev)
		if err != nil {
			return false, err
		}
		prev = id
	}
	r.log.Infow("search queued", "search_id", s.ID, "run_id", run.ID, "period", run.Period)
	return true, nil
}

func decodeStage(payload json.RawMessage) (stagePayload, error) {
	var p stagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, errors.Wrap(err, "decode stage payload")
	}
	return p, nil
}

// handleScrape is stage 1: fetch every result page, ingest leads, and settle
// the run and search status. A single page failure truncates the loop but
// keeps partial results; anything above that fails the run loudly.
func (r *Runner) handleScrape(ctx context.Context, payload json.RawMessage) error {
	p, err := decodeStage(payload)
	if err != nil {
		return err
	}
	s, err := r.db.GetSearch(ctx, p.SearchID)
	if err != nil {
		return err
	}
	run, err := r.db.GetSearchRun(ctx, p.RunID)
	if err != nil {
		return err
	}
	if err := r.db.SetSearchStatus(ctx, s.ID, domain.SearchRunning); err != nil {
		return err
	}

	if err := r.scrapeInto(ctx, s, run); err != nil {
		run.Status = domain.RunError
		run.ErrorMessage = err.Error()
		now := time.Now().UTC()
		run.CompletedAt = &now
		if saveErr := r.db.UpdateSearchRun(ctx, run); saveErr != nil {
			r.log.Warnw("save failed run", "run_id", run.ID, "err", saveErr)
		}
		if stErr := r.db.SetSearchStatus(ctx, s.ID, domain.SearchError); stErr != nil {
			r.log.Warnw("set search status", "search_id", s.ID, "err", stErr)
		}
		r.hub.SearchRunFinished("", run)
		return err
	}

	run.Status = domain.RunSuccess
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err := r.db.UpdateSearchRun(ctx, run); err != nil {
		return err
	}
	if err := r.db.SetSearchStatus(ctx, s.ID, domain.SearchSuccess); err != nil {
		return err
	}
	r.hub.SearchRunFinished("", run)
	r.log.Infow("scrape finished", "search_id", s.ID, "run_id", run.ID,
		"found", run.JobsFound, "created", run.JobsCreated)
	return nil
}

func (r *Runner) scrapeInto(ctx context.Context, s *domain.Search, run *domain.SearchRun) error {
	parser, err := scrape.NewParser(s.Source, r.fetcher)
	if err != nil {
		return err
	}

	pages, err := parser.PageCount(ctx, s)
	if err != nil {
		return errors.Wrap(err, "page count")
	}
	for page := 1; page <= pages; page++ {
		leads, err := parser.ParsePage(ctx, s, page)
		if err != nil {
			// Keep what earlier pages yielded.
			r.log.Warnw("page scrape failed, truncating run",
				"search_id", s.ID, "page", page, "err", err)
			break
		}
		run.JobsFound += len(leads)
		for _, lead := range leads {
			created, err := r.ingestLead(ctx, s.Owner, run.ID, lead)
			if err != nil {
				r.log.Warnw("ingest failed", "search_id", s.ID, "url", lead.URL, "err", err)
				continue
			}
			if created {
				run.JobsCreated++
			}
		}
	}
	return nil
}

// handleRules is stage 2: batch-apply active rules over the owner's eligible
// jobs.
func (r *Runner) handleRules(ctx context.Context, payload json.RawMessage) error {
	p, err := decodeStage(payload)
	if err != nil {
		return err
	}
	s, err := r.db.GetSearch(ctx, p.SearchID)
	if err != nil {
		return err
	}
	changed, err := r.rules.ApplyAll(ctx, s.Owner)
	if err != nil {
		return err
	}
	r.log.Infow("rule sweep done", "search_id", s.ID, "changed", changed)
	return nil
}

// handleBanSweep is stage 3: repair jobs that slipped past a company ban.
func (r *Runner) handleBanSweep(ctx context.Context, payload json.RawMessage) error {
	p, err := decodeStage(payload)
	if err != nil {
		return err
	}
	s, err := r.db.GetSearch(ctx, p.SearchID)
	if err != nil {
		return err
	}
	banned, err := r.lifecycle.BanSweep(ctx, s.Owner)
	if err != nil {
		return err
	}
	if banned > 0 {
		r.log.Infow("ban sweep done", "search_id", s.ID, "banned", banned)
	}
	return nil
}

// handlePopulate is stage 4: hydrate this run's unpopulated jobs from their
// detail pages. A posting that has disappeared is dismissed with a note
// instead of staying stuck unpopulated. Per-job failures do not halt the
// batch.
func (r *Runner) handlePopulate(ctx context.Context, payload json.RawMessage) error {
	p, err := decodeStage(payload)
	if err != nil {
		return err
	}
	s, err := r.db.GetSearch(ctx, p.SearchID)
	if err != nil {
		return err
	}
	parser, err := scrape.NewParser(s.Source, r.fetcher)
	if err != nil {
		return err
	}

	jobs, err := r.db.ListRunJobs(ctx, p.RunID, true)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := parser.PopulateJob(ctx, job); err != nil {
			if errors.Is(err, scrape.ErrNotFound) {
				if dErr := r.lifecycle.Dismiss(ctx, job, "posting no longer available at source"); dErr != nil {
					r.log.Warnw("dismiss vanished job", "job_id", job.ID, "err", dErr)
				}
				continue
			}
			r.log.Warnw("populate failed", "job_id", job.ID, "err", err)
			continue
		}
		job.Populated = true
		if err := r.db.SaveJobContent(ctx, job); err != nil {
			r.log.Warnw("save job content", "job_id", job.ID, "err", err)
			continue
		}
		// Description-based rules can only fire once the description exists.
		if _, err := r.rules.ApplyToJob(ctx, job); err != nil {
			r.log.Warnw("rule triage after populate failed", "job_id", job.ID, "err", err)
		}
	}
	return nil
}

// handleScore is stage 5: queue scoring for this run's jobs that survived
// triage. No resume on file means skip, not error.
func (r *Runner) handleScore(ctx context.Context, payload json.RawMessage) error {
	p, err := decodeStage(payload)
	if err != nil {
		return err
	}
	s, err := r.db.GetSearch(ctx, p.SearchID)
	if err != nil {
		return err
	}
	resume, err := r.db.GetResume(ctx, s.Owner)
	if err != nil {
		return err
	}
	if resume == nil {
		r.log.Infow("no resume on file, skipping scoring", "search_id", s.ID)
		return nil
	}

	jobs, err := r.db.ListRunJobs(ctx, p.RunID, false)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if job.Status != domain.StatusNew || !job.Populated {
			continue
		}
		if err := r.score.CalculateScore(ctx, job); err != nil {
			r.log.Warnw("queue scoring", "job_id", job.ID, "err", err)
		}
	}
	return nil
}
