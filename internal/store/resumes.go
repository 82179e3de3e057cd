package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"jobtriage-engine/internal/domain"
)

// GetResume returns the owner's resume, or nil when none is uploaded.
func (d *DB) GetResume(ctx context.Context, owner string) (*domain.Resume, error) {
	var r domain.Resume
	row := d.Pool.QueryRowContext(ctx, `
SELECT id, owner, name, text FROM resumes WHERE owner = ?;`, owner)
	if err := row.Scan(&r.ID, &r.Owner, &r.Name, &r.Text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "scan resume")
	}
	return &r, nil
}

// SaveResume upserts the owner's single resume.
func (d *DB) SaveResume(ctx context.Context, r *domain.Resume) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO resumes(id, owner, name, text) VALUES(?,?,?,?)
ON CONFLICT(owner) DO UPDATE SET name = excluded.name, text = excluded.text;`,
		r.ID, r.Owner, r.Name, r.Text)
	return errors.Wrap(err, "save resume")
}

// GetOrCreateApplication returns the job's companion application, creating it
// on first call. The unique job_id index gives exactly-once semantics even
// under concurrent APPLIED transitions.
func (d *DB) GetOrCreateApplication(ctx context.Context, jobID string) (domain.Application, bool, error) {
	res, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO applications(id, job_id, status, created_at)
VALUES(?,?,?,?);`,
		uuid.NewString(), jobID, string(domain.AppSubmitted), fmtTime(time.Now()))
	if err != nil {
		return domain.Application{}, false, errors.Wrap(err, "insert application")
	}
	n, _ := res.RowsAffected()

	var (
		a       domain.Application
		status  string
		changed sql.NullString
		created string
	)
	row := d.Pool.QueryRowContext(ctx, `
SELECT id, job_id, status, date_status_changed, created_at
FROM applications WHERE job_id = ?;`, jobID)
	if err := row.Scan(&a.ID, &a.JobID, &status, &changed, &created); err != nil {
		return domain.Application{}, false, errors.Wrap(err, "scan application")
	}
	a.Status = domain.ApplicationStatus(status)
	a.DateStatusChanged = parseTimePtr(changed)
	a.CreatedAt = parseTime(created)
	return a, n > 0, nil
}
