// Package migrations embeds the SQL schema and applies pending migrations.
package migrations

import (
	"database/sql"

	"embed"

	"github.com/cockroachdb/errors"
	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS

// Run applies all pending migrations to the given database.
func Run(db *sql.DB) error {
	goose.SetBaseFS(FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "set dialect")
	}
	if err := goose.Up(db, "."); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}
