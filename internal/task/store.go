package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const timeLayout = time.RFC3339

// Store persists tasks in the engine's sqlite database. The single-writer
// connection pool means every transaction here is serialized, which is what
// makes claim-next-runnable race-free.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create enqueues a task. Payload must already be marshaled JSON.
func (s *Store) Create(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = StatusQueued
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	payload := string(t.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks(id, handler, payload, status, depends_on, error, attempts, created_at)
VALUES(?,?,?,?,?,?,?,?);`,
		t.ID, t.Handler, payload, string(t.Status), t.DependsOn, t.Error,
		t.Attempts, t.CreatedAt.Format(timeLayout))
	return errors.Wrap(err, "insert task")
}

func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, handler, payload, status, depends_on, error, attempts, created_at, started_at, completed_at
FROM tasks WHERE id = ?;`, id)
	return scanTask(row)
}

// Queryer is the subset of sql.DB and sql.Tx used for read-only task lookups.
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IsPending reports whether the task exists and has not yet finished.
// The scoring service uses this to decide whether a stored task token still
// represents in-flight work.
func (s *Store) IsPending(ctx context.Context, id string) (bool, error) {
	return IsPending(ctx, s.db, id)
}

// IsPending looks the task up through q. Callers holding an open transaction
// on the single-writer pool must pass the transaction, not the pool: a pool
// lookup would wait on the connection the transaction already holds.
func IsPending(ctx context.Context, q Queryer, id string) (bool, error) {
	var status string
	err := q.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?;`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "task status")
	}
	return Status(status) == StatusQueued || Status(status) == StatusRunning, nil
}

// NextRunnable claims the oldest queued task whose dependency (if any) has
// completed, moving it to running. Queued tasks whose dependency failed are
// failed in the same transaction so they never run. Returns nil when nothing
// is runnable.
func (s *Store) NextRunnable(ctx context.Context) (*Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx, `
UPDATE tasks SET status = ?, error = 'dependency failed', completed_at = ?
WHERE status = ? AND depends_on != ''
  AND depends_on IN (SELECT id FROM tasks WHERE status = ?);`,
		string(StatusFailed), now, string(StatusQueued), string(StatusFailed)); err != nil {
		return nil, errors.Wrap(err, "fail dependents")
	}

	row := tx.QueryRowContext(ctx, `
SELECT id, handler, payload, status, depends_on, error, attempts, created_at, started_at, completed_at
FROM tasks t
WHERE t.status = ?
  AND (t.depends_on = ''
       OR EXISTS (SELECT 1 FROM tasks d WHERE d.id = t.depends_on AND d.status = ?))
ORDER BY t.created_at, t.id LIMIT 1;`,
		string(StatusQueued), string(StatusCompleted))
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tx.Commit()
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE tasks SET status = ?, attempts = attempts + 1, started_at = ? WHERE id = ?;`,
		string(StatusRunning), now, t.ID); err != nil {
		return nil, errors.Wrap(err, "claim task")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit claim")
	}

	t.Status = StatusRunning
	t.Attempts++
	started := time.Now().UTC()
	t.StartedAt = &started
	return t, nil
}

func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE tasks SET status = ?, error = '', completed_at = ? WHERE id = ?;`,
		string(StatusCompleted), time.Now().UTC().Format(timeLayout), id)
	return errors.Wrap(err, "complete task")
}

func (s *Store) MarkFailed(ctx context.Context, id, msg string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE tasks SET status = ?, error = ?, completed_at = ? WHERE id = ?;`,
		string(StatusFailed), msg, time.Now().UTC().Format(timeLayout), id)
	return errors.Wrap(err, "fail task")
}

// Requeue puts a running task back in the queue after a retryable failure,
// keeping its attempt count.
func (s *Store) Requeue(ctx context.Context, id, msg string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE tasks SET status = ?, error = ?, started_at = NULL WHERE id = ?;`,
		string(StatusQueued), msg, id)
	return errors.Wrap(err, "requeue task")
}

// RequeueOrphans returns tasks stranded in running by a crash to the queue.
// Called once at startup before the pool begins polling.
func (s *Store) RequeueOrphans(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE tasks SET status = ?, started_at = NULL WHERE status = ?;`,
		string(StatusQueued), string(StatusRunning))
	if err != nil {
		return 0, errors.Wrap(err, "requeue orphans")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		t                  Task
		status, payload    string
		created            string
		started, completed sql.NullString
	)
	err := row.Scan(&t.ID, &t.Handler, &payload, &status, &t.DependsOn,
		&t.Error, &t.Attempts, &created, &started, &completed)
	if err != nil {
		return nil, err
	}
	t.Payload = []byte(payload)
	t.Status = Status(status)
	t.CreatedAt, _ = time.Parse(timeLayout, created)
	if started.Valid {
		at, _ := time.Parse(timeLayout, started.String)
		t.StartedAt = &at
	}
	if completed.Valid {
		at, _ := time.Parse(timeLayout, completed.String)
		t.CompletedAt = &at
	}
	return &t, nil
}
