package score

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"jobtriage-engine/internal/domain"
	"jobtriage-engine/internal/events"
	"jobtriage-engine/internal/store"
	"jobtriage-engine/internal/task"
)

// TaskScoreJob is the queue handler name for asynchronous scoring.
const TaskScoreJob = "score.job"

const systemInstruction = `You rate how well a job posting fits a candidate's resume.
Respond with a single JSON object: {"score": <integer 0-100>, "explanation": "<short reason>"}.
Do not include any other text.`

type Service struct {
	db        *store.DB
	tasks     *task.Store
	completer Completer
	hub       *events.Hub
	log       *zap.SugaredLogger
}

func NewService(db *store.DB, tasks *task.Store, completer Completer, hub *events.Hub, log *zap.SugaredLogger) *Service {
	return &Service{db: db, tasks: tasks, completer: completer, hub: hub, log: log.Named("score")}
}

func (s *Service) RegisterHandlers(reg *task.Registry) {
	reg.Register(TaskScoreJob, s.handleScoreTask)
}

type scorePayload struct {
	JobID string `json:"job_id"`
}

// CalculateScore enqueues an asynchronous scoring request for the job.
// Already-scored and unpopulated jobs are no-ops. The claim (re-check score,
// check stored token, store new token) runs in one transaction, so at most
// one scoring task is ever outstanding per job.
func (s *Service) CalculateScore(ctx context.Context, job *domain.Job) error {
	if job.Score != nil || !job.Populated {
		return nil
	}

	token := uuid.NewString()
	claimed, err := s.db.ClaimScoreTask(ctx, job.ID, token, func(tx *sql.Tx, stored string) (bool, error) {
		// The lookup rides the claim transaction: the single-writer pool has
		// no connection to spare while the claim is open.
		return task.IsPending(ctx, tx, stored)
	})
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	payload, err := json.Marshal(scorePayload{JobID: job.ID})
	if err != nil {
		return errors.Wrap(err, "marshal score payload")
	}
	// The task ID doubles as the in-flight token, so the claim above can ask
	// the queue whether the stored token still represents live work.
	t := &task.Task{ID: token, Handler: TaskScoreJob, Payload: payload}
	if err := s.tasks.Create(ctx, t); err != nil {
		if clearErr := s.db.ClearScoreTask(ctx, job.ID); clearErr != nil {
			s.log.Warnw("clear score token after enqueue failure", "job_id", job.ID, "err", clearErr)
		}
		return err
	}
	job.ScoreTaskID = token
	return nil
}

func (s *Service) handleScoreTask(ctx context.Context, payload json.RawMessage) error {
	var p scorePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return errors.Wrap(err, "decode score payload")
	}

	job, err := s.db.GetJob(ctx, p.JobID)
	if err != nil {
		return err
	}
	if job.Score != nil {
		return nil
	}

	resume, err := s.db.GetResume(ctx, job.Owner)
	if err != nil {
		return err
	}
	if resume == nil {
		return s.db.ClearScoreTask(ctx, job.ID)
	}

	var reply string
	backoff := retry.WithJitter(500*time.Millisecond,
		retry.WithMaxRetries(3, retry.NewExponential(time.Second)))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var callErr error
		reply, callErr = s.completer.Complete(ctx, systemInstruction, buildPrompt(job, resume))
		if callErr != nil {
			return retry.RetryableError(callErr)
		}
		return nil
	})
	if err != nil {
		// Retries exhausted. Release the token so a later pass can try again.
		s.log.Warnw("scoring provider failed", "job_id", job.ID, "err", err)
		return s.db.ClearScoreTask(ctx, job.ID)
	}

	result, err := ParseResult(reply)
	if err != nil {
		s.log.Warnw("unparseable score response", "job_id", job.ID, "err", err)
		return s.db.ClearScoreTask(ctx, job.ID)
	}

	if err := s.db.SaveJobScore(ctx, job.ID, result.Score, result.Explanation); err != nil {
		return err
	}
	s.hub.JobScored("", job.ID, result.Score)
	s.log.Infow("job scored", "job_id", job.ID, "score", result.Score)
	return nil
}

func buildPrompt(job *domain.Job, resume *domain.Resume) string {
	return fmt.Sprintf(
		"Job title: %s\nCompany: %s\n\nJob description:\n%s\n\nCandidate resume:\n%s\n",
		job.Title, job.Company.Name, job.Description, resume.Text)
}
