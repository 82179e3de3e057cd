// Package schedule triggers active searches on their cron expressions.
// Entries are re-synced from the store periodically, so edits made through
// the API take effect without a restart.
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/pipeline"
	"jobtriage-engine/internal/store"
)

const syncInterval = time.Minute

type Scheduler struct {
	db     *store.DB
	runner *pipeline.Runner
	log    *zap.SugaredLogger

	cron    *cron.Cron
	entries map[string]entry // search ID -> installed entry
}

type entry struct {
	id   cron.EntryID
	spec string
}

func New(db *store.DB, runner *pipeline.Runner, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		db:      db,
		runner:  runner,
		log:     log.Named("schedule"),
		cron:    cron.New(),
		entries: make(map[string]entry),
	}
}

// Run keeps cron entries in sync with active searches until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	defer s.cron.Stop()

	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		if err := s.sync(ctx); err != nil {
			s.log.Warnw("sync failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sync installs, updates and removes cron entries to mirror the store. A
// search with an empty or invalid schedule gets no entry: manual-only.
func (s *Scheduler) sync(ctx context.Context) error {
	searches, err := s.db.ListActiveSearches(ctx)
	if err != nil {
		return err
	}

	want := make(map[string]*domain.Search, len(searches))
	for _, sr := range searches {
		if sr.Schedule != "" {
			want[sr.ID] = sr
		}
	}

	for id, e := range s.entries {
		sr, ok := want[id]
		if ok && sr.Schedule == e.spec {
			continue
		}
		s.cron.Remove(e.id)
		delete(s.entries, id)
	}

	for id, sr := range want {
		if _, ok := s.entries[id]; ok {
			continue
		}
		searchID := id
		entryID, err := s.cron.AddFunc(sr.Schedule, func() {
			s.trigger(searchID)
		})
		if err != nil {
			s.log.Warnw("invalid schedule, search will not auto-run",
				"search_id", id, "schedule", sr.Schedule, "err", err)
			continue
		}
		s.entries[id] = entry{id: entryID, spec: sr.Schedule}
		s.log.Infow("search scheduled", "search_id", id, "schedule", sr.Schedule)
	}
	return nil
}

func (s *Scheduler) trigger(searchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	started, err := s.runner.Execute(ctx, searchID)
	if err != nil {
		s.log.Warnw("scheduled execution failed", "search_id", searchID, "err", err)
		return
	}
	if !started {
		s.log.Infow("scheduled execution skipped", "search_id", searchID)
	}
}
