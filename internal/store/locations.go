package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"jobtriage-engine/internal/domain"
)

// GetOrCreateLocation upserts a location by name.
func (d *DB) GetOrCreateLocation(ctx context.Context, name string) (domain.Location, error) {
	if _, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO locations(id, name) VALUES(?,?);`, uuid.NewString(), name); err != nil {
		return domain.Location{}, errors.Wrap(err, "insert location")
	}

	var (
		loc domain.Location
		geo sql.NullInt64
	)
	row := d.Pool.QueryRowContext(ctx, `SELECT id, name, geo_code FROM locations WHERE name = ?;`, name)
	if err := row.Scan(&loc.ID, &loc.Name, &geo); err != nil {
		return domain.Location{}, errors.Wrap(err, "scan location")
	}
	if geo.Valid {
		loc.GeoCode = &geo.Int64
	}
	return loc, nil
}

func (d *DB) ListLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT id, name, geo_code FROM locations ORDER BY name;`)
	if err != nil {
		return nil, errors.Wrap(err, "list locations")
	}
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		var (
			loc domain.Location
			geo sql.NullInt64
		)
		if err := rows.Scan(&loc.ID, &loc.Name, &geo); err != nil {
			return nil, errors.Wrap(err, "scan location")
		}
		if geo.Valid {
			loc.GeoCode = &geo.Int64
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}
