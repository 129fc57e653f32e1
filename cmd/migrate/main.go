// Command migrate manages the invoicing schema and loads sample data.
//
//	migrate up | down | version | seed
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"ms-invoicing/internal/config"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/store"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] up|down|version|seed\n", os.Args[0])
		flag.PrintDefaults()
	}
	level := flag.String("log-level", "info", "minimum log level")
	flag.Parse()

	_ = godotenv.Load()
	log, err := logger.NewLogger(logger.Options{Service: "migrate", Level: *level})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	switch cmd := flag.Arg(0); cmd {
	case "up", "down", "version":
		err = runMigrations(cmd, cfg.Database, log)
	case "seed":
		err = seed(ctx, cfg.Database, log)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", "✅ Done.")
}

func openSQL(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case store.DriverSQLite:
		return sql.Open(sqliteshim.ShimName, cfg.DSN)
	case store.DriverPostgres:
		return sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

func runMigrations(cmd string, cfg config.DatabaseConfig, log *logger.Logger) error {
	sqldb, err := openSQL(cfg)
	if err != nil {
		return err
	}
	runner, err := store.NewRunner(sqldb, cfg.Driver, true)
	if err != nil {
		sqldb.Close()
		return err
	}
	defer runner.Close()

	switch cmd {
	case "up":
		log.Info("MIGRATE", "Applying migrations...")
		return runner.Up()
	case "down":
		log.Info("MIGRATE", "Reverting migrations...")
		return runner.Down()
	}

	version, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	log.Info("MIGRATE", fmt.Sprintf("Schema version %d (dirty: %t)", version, dirty))
	return nil
}

// seed loads a small catalog so the UI has something to show.
func seed(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) error {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	st := store.New(db, nil)

	log.Info("MIGRATE", "Seeding sample data...")
	for _, s := range []models.Student{
		{Name: "Alice Wonderland", Class: "5", Section: "B", RollNo: "12"},
		{Name: "Bob Builder", Class: "6", Section: "A", RollNo: "3"},
	} {
		if _, err := st.Students.Insert(ctx, &s); err != nil {
			return err
		}
	}

	sportsDay := &models.Event{Name: "Sports Day", Date: "2025-03-14", Description: "Annual athletics meet.", IsActive: true}
	if _, err := st.Events.Insert(ctx, sportsDay); err != nil {
		return err
	}
	if _, err := st.Events.Insert(ctx, &models.Event{Name: "Science Fair", Date: "2024-11-02"}); err != nil {
		return err
	}

	for _, seg := range []models.Segment{
		{EventID: sportsDay.ID, Name: "Running", Fee: 1000},
		{EventID: sportsDay.ID, Name: "Long Jump", Fee: 550},
	} {
		if _, err := st.Segments.Insert(ctx, &seg); err != nil {
			return err
		}
	}
	return nil
}
