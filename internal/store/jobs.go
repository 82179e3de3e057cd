package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"jobtriage-engine/internal/domain"
)

const jobColumns = `
j.id, j.owner, j.title, j.url,
c.id, c.owner, c.name, c.canonical_url, c.is_banned, c.banned_at, c.ban_reason,
l.id, l.name,
j.date_posted, j.date_found, j.populated, j.flexibility, j.raw_content,
j.description, j.easy_apply, j.status, j.pre_ban_status, j.date_status_changed,
j.score, j.score_explanation, j.score_task_id, j.search_run_id`

const jobFrom = `
FROM jobs j
JOIN companies c ON c.id = j.company_id
LEFT JOIN locations l ON l.id = j.location_id`

// CreateJobIfNew inserts the job unless one with the same (owner, url)
// already exists. The job's ID and cached status are filled in on creation.
func (d *DB) CreateJobIfNew(ctx context.Context, j *domain.Job) (bool, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = domain.StatusNew
	}

	var locID any
	if j.LocationID != "" {
		locID = j.LocationID
	}
	var runID any
	if j.SearchRunID != "" {
		runID = j.SearchRunID
	}

	res, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs(
  id, owner, company_id, title, url, location_id, date_posted, date_found,
  populated, flexibility, raw_content, description, easy_apply, status,
  search_run_id, created_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		j.ID, j.Owner, j.Company.ID, j.Title, j.URL, locID,
		fmtTimePtr(j.DatePosted), fmtTimePtr(j.DateFound),
		boolToInt(j.Populated), string(j.Flexibility), j.RawContent,
		j.Description, boolToInt(j.EasyApply), string(j.Status),
		runID, fmtTime(time.Now()))
	if err != nil {
		return false, errors.Wrap(err, "insert job")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		j.CacheStatus()
	}
	return n > 0, nil
}

func (d *DB) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+jobColumns+jobFrom+` WHERE j.id = ?;`, id)
	return scanJob(row)
}

// ListJobsByStatus returns the owner's jobs in any of the given statuses,
// optionally restricted to populated ones.
func (d *DB) ListJobsByStatus(ctx context.Context, owner string, statuses []domain.JobStatus, populatedOnly bool) ([]*domain.Job, error) {
	where := `j.owner = ?` + statusClause(statuses)
	if populatedOnly {
		where += ` AND j.populated = 1`
	}
	return d.listJobs(ctx, where, owner)
}

// ListCompanyJobsByStatus returns a company's jobs in any of the given statuses.
func (d *DB) ListCompanyJobsByStatus(ctx context.Context, companyID string, statuses []domain.JobStatus) ([]*domain.Job, error) {
	return d.listJobs(ctx, `j.company_id = ?`+statusClause(statuses), companyID)
}

// ListRunJobs returns the jobs discovered by a search run.
func (d *DB) ListRunJobs(ctx context.Context, runID string, unpopulatedOnly bool) ([]*domain.Job, error) {
	where := `j.search_run_id = ?`
	if unpopulatedOnly {
		where += ` AND j.populated = 0`
	}
	return d.listJobs(ctx, where, runID)
}

// ListJobsWithBannedCompany returns jobs whose company is banned but whose own
// status has not caught up. Fed to the ban-sweep repair pass.
func (d *DB) ListJobsWithBannedCompany(ctx context.Context, owner string) ([]*domain.Job, error) {
	return d.listJobs(ctx, `j.owner = ? AND c.is_banned = 1 AND j.status != 'banned'`, owner)
}

func statusClause(statuses []domain.JobStatus) string {
	if len(statuses) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(statuses))
	for _, s := range statuses {
		quoted = append(quoted, fmt.Sprintf("'%s'", s))
	}
	return ` AND j.status IN (` + strings.Join(quoted, ",") + `)`
}

func (d *DB) listJobs(ctx context.Context, where string, args ...any) ([]*domain.Job, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+jobColumns+jobFrom+` WHERE `+where+` ORDER BY j.created_at;`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		j                    domain.Job
		banned, pop, easy    int
		bannedAt             sql.NullString
		locID, locName       sql.NullString
		posted, found, chgd  sql.NullString
		score                sql.NullInt64
		runID                sql.NullString
		flexibility, status  string
		preBan               string
	)
	err := row.Scan(
		&j.ID, &j.Owner, &j.Title, &j.URL,
		&j.Company.ID, &j.Company.Owner, &j.Company.Name, &j.Company.CanonicalURL,
		&banned, &bannedAt, &j.Company.BanReason,
		&locID, &locName,
		&posted, &found, &pop, &flexibility, &j.RawContent,
		&j.Description, &easy, &status, &preBan, &chgd,
		&score, &j.ScoreExplanation, &j.ScoreTaskID, &runID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "scan job")
	}

	j.Company.IsBanned = banned != 0
	j.Company.BannedAt = parseTimePtr(bannedAt)
	j.LocationID = locID.String
	j.LocationName = locName.String
	j.DatePosted = parseTimePtr(posted)
	j.DateFound = parseTimePtr(found)
	j.Populated = pop != 0
	j.EasyApply = easy != 0
	j.Flexibility = domain.Flexibility(flexibility)
	j.Status = domain.JobStatus(status)
	j.PreBanStatus = domain.JobStatus(preBan)
	j.DateStatusChanged = parseTimePtr(chgd)
	j.SearchRunID = runID.String
	if score.Valid {
		v := int(score.Int64)
		j.Score = &v
	}

	// Snapshot the load-time status for no-op transition detection.
	j.CacheStatus()
	return &j, nil
}

// RecordStatusChange atomically appends a status event and persists the job's
// changed fields (status, date_status_changed and, when touched,
// pre_ban_status). The caller owns the transition logic.
func (d *DB) RecordStatusChange(ctx context.Context, j *domain.Job, ev domain.JobEvent, touchedPreBan bool) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO job_events(id, job_id, old_status, new_status, created_at)
VALUES(?,?,?,?,?);`,
			ev.ID, ev.JobID, string(ev.OldStatus), string(ev.NewStatus), fmtTime(ev.CreatedAt)); err != nil {
			return errors.Wrap(err, "insert job event")
		}

		if touchedPreBan {
			_, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = ?, date_status_changed = ?, pre_ban_status = ? WHERE id = ?;`,
				string(j.Status), fmtTime(ev.CreatedAt), string(j.PreBanStatus), j.ID)
			return errors.Wrap(err, "update job status")
		}
		_, err := tx.ExecContext(ctx, `
UPDATE jobs SET status = ?, date_status_changed = ? WHERE id = ?;`,
			string(j.Status), fmtTime(ev.CreatedAt), j.ID)
		return errors.Wrap(err, "update job status")
	})
}

// SaveJobContent persists the populate-stage fields.
func (d *DB) SaveJobContent(ctx context.Context, j *domain.Job) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE jobs SET populated = ?, description = ?, raw_content = ?, easy_apply = ?, flexibility = ?
WHERE id = ?;`,
		boolToInt(j.Populated), j.Description, j.RawContent, boolToInt(j.EasyApply),
		string(j.Flexibility), j.ID)
	return errors.Wrap(err, "save job content")
}

// SaveJobScore stores the scoring result and releases the in-flight token.
func (d *DB) SaveJobScore(ctx context.Context, jobID string, score int, explanation string) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE jobs SET score = ?, score_explanation = ?, score_task_id = '' WHERE id = ?;`,
		score, explanation, jobID)
	return errors.Wrap(err, "save job score")
}

// ClearScoreTask releases the in-flight token without storing a score, so a
// later pass can re-attempt.
func (d *DB) ClearScoreTask(ctx context.Context, jobID string) error {
	_, err := d.Pool.ExecContext(ctx, `UPDATE jobs SET score_task_id = '' WHERE id = ?;`, jobID)
	return errors.Wrap(err, "clear score task")
}

// ClaimScoreTask stores token as the job's in-flight scoring token, unless the
// job is already scored or inFlight reports the stored token still pending.
// The check-then-set runs in one transaction; with the single-writer pool this
// is the row lock that makes double-scoring impossible. inFlight receives the
// claim transaction and must do any database reads through it, since the pool
// has no free connection while the claim is open.
func (d *DB) ClaimScoreTask(ctx context.Context, jobID, token string, inFlight func(tx *sql.Tx, token string) (bool, error)) (bool, error) {
	claimed := false
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var (
			score   sql.NullInt64
			current string
		)
		row := tx.QueryRowContext(ctx, `SELECT score, score_task_id FROM jobs WHERE id = ?;`, jobID)
		if err := row.Scan(&score, &current); err != nil {
			return errors.Wrap(err, "read score state")
		}
		if score.Valid {
			return nil
		}
		if current != "" {
			pending, err := inFlight(tx, current)
			if err != nil {
				return err
			}
			if pending {
				return nil
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE jobs SET score_task_id = ? WHERE id = ?;`, token, jobID); err != nil {
			return errors.Wrap(err, "store score task id")
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// AddJobNote attaches a note to a job.
func (d *DB) AddJobNote(ctx context.Context, jobID, text string) (domain.JobNote, error) {
	n := domain.JobNote{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO job_notes(id, job_id, text, created_at) VALUES(?,?,?,?);`,
		n.ID, n.JobID, n.Text, fmtTime(n.CreatedAt))
	return n, errors.Wrap(err, "insert job note")
}

func (d *DB) ListJobNotes(ctx context.Context, jobID string) ([]domain.JobNote, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, job_id, text, created_at FROM job_notes WHERE job_id = ? ORDER BY created_at;`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, "list job notes")
	}
	defer rows.Close()

	var out []domain.JobNote
	for rows.Next() {
		var (
			n  domain.JobNote
			at string
		)
		if err := rows.Scan(&n.ID, &n.JobID, &n.Text, &at); err != nil {
			return nil, errors.Wrap(err, "scan job note")
		}
		n.CreatedAt = parseTime(at)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (d *DB) ListJobEvents(ctx context.Context, jobID string) ([]domain.JobEvent, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, job_id, old_status, new_status, created_at
FROM job_events WHERE job_id = ? ORDER BY created_at;`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, "list job events")
	}
	defer rows.Close()

	var out []domain.JobEvent
	for rows.Next() {
		var (
			ev       domain.JobEvent
			from, to string
			at       string
		)
		if err := rows.Scan(&ev.ID, &ev.JobID, &from, &to, &at); err != nil {
			return nil, errors.Wrap(err, "scan job event")
		}
		ev.OldStatus = domain.JobStatus(from)
		ev.NewStatus = domain.JobStatus(to)
		ev.CreatedAt = parseTime(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}
