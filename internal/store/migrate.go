package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Runner applies the embedded schema migrations.
type Runner struct {
	source   source.Driver
	migrator *migrate.Migrate
	// ownsDB reports whether Close may also close the database handle.
	ownsDB bool
}

// NewRunner prepares migrations against db. When ownsDB is false the
// handle is left open on Close, which in-memory SQLite depends on.
func NewRunner(db *sql.DB, driver string, ownsDB bool) (*Runner, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	var dbDriver database.Driver
	switch driver {
	case DriverPostgres:
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	case DriverSQLite:
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Runner{source: src, migrator: m, ownsDB: ownsDB}, nil
}

func (r *Runner) Up() error {
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func (r *Runner) Down() error {
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version returns the applied schema version; 0 means nothing has run yet.
func (r *Runner) Version() (uint, bool, error) {
	version, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

func (r *Runner) Close() error {
	if r.ownsDB {
		sourceErr, databaseErr := r.migrator.Close()
		if sourceErr != nil {
			return fmt.Errorf("error closing migrator source: %w", sourceErr)
		}
		if databaseErr != nil {
			return fmt.Errorf("error closing migrator database: %w", databaseErr)
		}
		return nil
	}
	return r.source.Close()
}
