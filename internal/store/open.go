package store

import (
	"context"
	"database/sql"
	"fmt"

	"ms-invoicing/internal/config"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured database and brings the schema up to date.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*bun.DB, error) {
	var db *bun.DB

	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// one writer avoids SQLITE_BUSY and keeps :memory: databases on a single connection
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())

	case DriverPostgres:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
		db = bun.NewDB(sqldb, pgdialect.New())

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	if err := migrateSchema(db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// migrateSchema runs migrations on a dedicated handle for Postgres so the
// migrator's pinned connection does not stay checked out of the pool.
func migrateSchema(db *bun.DB, cfg config.DatabaseConfig) error {
	sqldb, owns := db.DB, false
	if cfg.Driver == DriverPostgres {
		dedicated, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return fmt.Errorf("open migration connection: %w", err)
		}
		sqldb, owns = dedicated, true
	}

	runner, err := NewRunner(sqldb, cfg.Driver, owns)
	if err != nil {
		if owns {
			sqldb.Close()
		}
		return err
	}
	defer runner.Close()

	return runner.Up()
}
