// Package lifecycle implements the job status state machine. Any status may
// follow any other; what matters is the bookkeeping on the way through:
// exactly one event per effective change, pre-ban snapshots, and the applied
// hook.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/store"
)

// AppliedHook runs after a job's first transition into applied has been
// committed. Hooks must tolerate being invoked more than once for the same
// job (re-applying after a withdrawal also fires them).
type AppliedHook func(ctx context.Context, job *domain.Job)

type Service struct {
	db  *store.DB
	log *zap.SugaredLogger

	appliedHooks []AppliedHook
}

func NewService(db *store.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log.Named("lifecycle")}
}

// OnApplied registers a hook for transitions into applied. Wiring registers
// the application get-or-create here instead of the state machine carrying it
// inline.
func (s *Service) OnApplied(hook AppliedHook) {
	s.appliedHooks = append(s.appliedHooks, hook)
}

// UpdateStatus moves the job to newStatus. A transition to the cached
// (load-time) status is a no-op: no event, no save. Otherwise it snapshots or
// clears pre_ban_status as needed, appends exactly one JobEvent, stamps
// date_status_changed from the event, persists only the changed fields, and
// refreshes the cached status. Repeating a call with the same target is safe.
func (s *Service) UpdateStatus(ctx context.Context, job *domain.Job, newStatus domain.JobStatus) error {
	cached := job.CachedStatus()
	if cached == newStatus {
		return nil
	}

	touchedPreBan := false
	if newStatus == domain.StatusBanned {
		job.PreBanStatus = cached
		touchedPreBan = true
	} else if cached == domain.StatusBanned {
		job.PreBanStatus = ""
		touchedPreBan = true
	}

	job.Status = newStatus
	ev := domain.JobEvent{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		OldStatus: cached,
		NewStatus: newStatus,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.RecordStatusChange(ctx, job, ev, touchedPreBan); err != nil {
		return err
	}

	job.CacheStatus()
	at := ev.CreatedAt
	job.DateStatusChanged = &at

	s.log.Infow("status changed", "job_id", job.ID, "from", ev.OldStatus, "to", ev.NewStatus)

	if newStatus == domain.StatusApplied {
		for _, hook := range s.appliedHooks {
			hook(ctx, job)
		}
	}
	return nil
}

// Dismiss moves the job to dismissed and attaches an explanatory note.
// Used by the populate stage when a posting has gone away.
func (s *Service) Dismiss(ctx context.Context, job *domain.Job, note string) error {
	if err := s.UpdateStatus(ctx, job, domain.StatusDismissed); err != nil {
		return err
	}
	if note != "" {
		if _, err := s.db.AddJobNote(ctx, job.ID, note); err != nil {
			return err
		}
	}
	return nil
}
