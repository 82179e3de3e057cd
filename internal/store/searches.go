package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"jobtriage-engine/internal/domain"
)

const searchColumns = `
s.id, s.owner, s.keywords, s.location_id, l.name, l.geo_code,
s.easy_apply, s.is_onsite, s.is_remote, s.is_hybrid,
s.source, s.is_active, s.schedule, s.status, s.last_executed_at`

const searchFrom = `
FROM searches s
LEFT JOIN locations l ON l.id = s.location_id`

func (d *DB) CreateSearch(ctx context.Context, s *domain.Search) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = domain.SearchIdle
	}
	var locID any
	if s.LocationID != "" {
		locID = s.LocationID
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO searches(
  id, owner, keywords, location_id, easy_apply, is_onsite, is_remote, is_hybrid,
  source, is_active, schedule, status, created_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		s.ID, s.Owner, s.Keywords, locID,
		boolToInt(s.EasyApply), boolToInt(s.IsOnsite), boolToInt(s.IsRemote), boolToInt(s.IsHybrid),
		s.Source, boolToInt(s.IsActive), s.Schedule, string(s.Status), fmtTime(time.Now()))
	return errors.Wrap(err, "insert search")
}

func (d *DB) UpdateSearch(ctx context.Context, s *domain.Search) error {
	var locID any
	if s.LocationID != "" {
		locID = s.LocationID
	}
	_, err := d.Pool.ExecContext(ctx, `
UPDATE searches SET keywords = ?, location_id = ?, easy_apply = ?, is_onsite = ?,
  is_remote = ?, is_hybrid = ?, source = ?, is_active = ?, schedule = ?
WHERE id = ?;`,
		s.Keywords, locID, boolToInt(s.EasyApply), boolToInt(s.IsOnsite),
		boolToInt(s.IsRemote), boolToInt(s.IsHybrid), s.Source,
		boolToInt(s.IsActive), s.Schedule, s.ID)
	return errors.Wrap(err, "update search")
}

func (d *DB) GetSearch(ctx context.Context, id string) (*domain.Search, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+searchColumns+searchFrom+` WHERE s.id = ?;`, id)
	return scanSearch(row)
}

func (d *DB) ListSearches(ctx context.Context, owner string) ([]*domain.Search, error) {
	return d.listSearches(ctx, `s.owner = ?`, owner)
}

// ListActiveSearches returns every active search across owners; the scheduler
// uses this to sync cron entries.
func (d *DB) ListActiveSearches(ctx context.Context) ([]*domain.Search, error) {
	return d.listSearches(ctx, `s.is_active = 1`)
}

func (d *DB) listSearches(ctx context.Context, where string, args ...any) ([]*domain.Search, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+searchColumns+searchFrom+` WHERE `+where+` ORDER BY s.keywords;`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list searches")
	}
	defer rows.Close()

	var out []*domain.Search
	for rows.Next() {
		s, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSearch(row rowScanner) (*domain.Search, error) {
	var (
		s                            domain.Search
		locID, locName               sql.NullString
		geo                          sql.NullInt64
		easy, onsite, remote, hybrid int
		active                       int
		status                       string
		lastExec                     sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.Owner, &s.Keywords, &locID, &locName, &geo,
		&easy, &onsite, &remote, &hybrid,
		&s.Source, &active, &s.Schedule, &status, &lastExec,
	)
	if err != nil {
		return nil, errors.Wrap(err, "scan search")
	}
	s.LocationID = locID.String
	s.LocationName = locName.String
	if geo.Valid {
		s.GeoCode = &geo.Int64
	}
	s.EasyApply = easy != 0
	s.IsOnsite = onsite != 0
	s.IsRemote = remote != 0
	s.IsHybrid = hybrid != 0
	s.IsActive = active != 0
	s.Status = domain.SearchStatus(status)
	s.LastExecutedAt = parseTimePtr(lastExec)
	return &s, nil
}

// SetSearchStatus updates the search status; success and error also stamp
// last_executed_at.
func (d *DB) SetSearchStatus(ctx context.Context, searchID string, status domain.SearchStatus) error {
	if status == domain.SearchSuccess || status == domain.SearchError {
		_, err := d.Pool.ExecContext(ctx, `
UPDATE searches SET status = ?, last_executed_at = ? WHERE id = ?;`,
			string(status), fmtTime(time.Now()), searchID)
		return errors.Wrap(err, "set search status")
	}
	_, err := d.Pool.ExecContext(ctx, `UPDATE searches SET status = ? WHERE id = ?;`,
		string(status), searchID)
	return errors.Wrap(err, "set search status")
}

func (d *DB) CreateSearchRun(ctx context.Context, run *domain.SearchRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = domain.RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO search_runs(id, search_id, period_seconds, status, started_at, jobs_found, jobs_created, error_message)
VALUES(?,?,?,?,?,?,?,?);`,
		run.ID, run.SearchID, int64(run.Period.Seconds()), string(run.Status),
		fmtTime(run.StartedAt), run.JobsFound, run.JobsCreated, run.ErrorMessage)
	return errors.Wrap(err, "insert search run")
}

func (d *DB) UpdateSearchRun(ctx context.Context, run *domain.SearchRun) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE search_runs SET status = ?, completed_at = ?, jobs_found = ?, jobs_created = ?, error_message = ?
WHERE id = ?;`,
		string(run.Status), fmtTimePtr(run.CompletedAt), run.JobsFound,
		run.JobsCreated, run.ErrorMessage, run.ID)
	return errors.Wrap(err, "update search run")
}

func (d *DB) GetSearchRun(ctx context.Context, id string) (*domain.SearchRun, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT id, search_id, period_seconds, status, started_at, completed_at, jobs_found, jobs_created, error_message
FROM search_runs WHERE id = ?;`, id)
	return scanSearchRun(row)
}

func (d *DB) ListSearchRuns(ctx context.Context, searchID string, limit int) ([]*domain.SearchRun, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, search_id, period_seconds, status, started_at, completed_at, jobs_found, jobs_created, error_message
FROM search_runs WHERE search_id = ? ORDER BY started_at DESC LIMIT ?;`, searchID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list search runs")
	}
	defer rows.Close()

	var out []*domain.SearchRun
	for rows.Next() {
		run, err := scanSearchRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanSearchRun(row rowScanner) (*domain.SearchRun, error) {
	var (
		run       domain.SearchRun
		periodSec int64
		status    string
		started   string
		completed sql.NullString
	)
	err := row.Scan(&run.ID, &run.SearchID, &periodSec, &status, &started,
		&completed, &run.JobsFound, &run.JobsCreated, &run.ErrorMessage)
	if err != nil {
		return nil, errors.Wrap(err, "scan search run")
	}
	run.Period = time.Duration(periodSec) * time.Second
	run.Status = domain.RunStatus(status)
	run.StartedAt = parseTime(started)
	run.CompletedAt = parseTimePtr(completed)
	return &run, nil
}
