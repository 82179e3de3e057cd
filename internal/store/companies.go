package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"jobtriage-engine/internal/domain"
)

// GetOrCreateCompany upserts a company by (owner, canonical URL) and reports
// whether a new row was created. Safe under concurrent callers: the unique
// index makes the insert a no-op for the loser, which then reads the winner.
func (d *DB) GetOrCreateCompany(ctx context.Context, owner, name, canonicalURL string) (domain.Company, bool, error) {
	id := uuid.NewString()
	res, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO companies(id, owner, name, canonical_url, created_at)
VALUES(?,?,?,?,?);`,
		id, owner, name, canonicalURL, fmtTime(time.Now()))
	if err != nil {
		return domain.Company{}, false, errors.Wrap(err, "insert company")
	}
	n, _ := res.RowsAffected()

	c, err := d.getCompanyByURL(ctx, owner, canonicalURL)
	if err != nil {
		return domain.Company{}, false, err
	}
	return c, n > 0, nil
}

func (d *DB) GetCompany(ctx context.Context, id string) (domain.Company, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT id, owner, name, canonical_url, is_banned, banned_at, ban_reason
FROM companies WHERE id = ?;`, id)
	return scanCompany(row)
}

func (d *DB) getCompanyByURL(ctx context.Context, owner, canonicalURL string) (domain.Company, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT id, owner, name, canonical_url, is_banned, banned_at, ban_reason
FROM companies WHERE owner = ? AND canonical_url = ?;`, owner, canonicalURL)
	return scanCompany(row)
}

// SaveCompanyBan persists only the ban fields.
func (d *DB) SaveCompanyBan(ctx context.Context, c domain.Company) error {
	_, err := d.Pool.ExecContext(ctx, `
UPDATE companies SET is_banned = ?, banned_at = ?, ban_reason = ? WHERE id = ?;`,
		boolToInt(c.IsBanned), fmtTimePtr(c.BannedAt), c.BanReason, c.ID)
	return errors.Wrap(err, "save company ban")
}

func (d *DB) ListCompanies(ctx context.Context, owner string) ([]domain.Company, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, owner, name, canonical_url, is_banned, banned_at, ban_reason
FROM companies WHERE owner = ? ORDER BY name;`, owner)
	if err != nil {
		return nil, errors.Wrap(err, "list companies")
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (domain.Company, error) {
	var (
		c        domain.Company
		banned   int
		bannedAt sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Owner, &c.Name, &c.CanonicalURL, &banned, &bannedAt, &c.BanReason); err != nil {
		return domain.Company{}, errors.Wrap(err, "scan company")
	}
	c.IsBanned = banned != 0
	c.BannedAt = parseTimePtr(bannedAt)
	return c, nil
}
