package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"socassay/adapters/fieldcsv"
	"socassay/adapters/postgres"
	"socassay/app"
	"socassay/internal"
	"socassay/internal/config"
	"socassay/internal/errors"
	"socassay/internal/testkit"
	"socassay/ports"
	"socassay/ui"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		return nil, err
	}

	return db, nil
}

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := internal.NewDefaultLogger()

	// Without DATABASE_URL results are kept in memory only.
	var store ports.RunStore
	if appConfig.Database.URL != "" {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Database error: %v", err)
		}
		defer db.Close()
		store = postgres.NewRunRepository(db)
		logger.Info("using postgres run store")
	} else {
		store = testkit.NewInMemoryRunStore()
		logger.Warn("DATABASE_URL not set, runs are kept in memory only")
	}

	// Without TRIAL_FILE the reanalysis endpoint serves a synthetic table.
	var reader ports.TrialReader
	if appConfig.Trial.FilePath != "" {
		reader = fieldcsv.NewTrialReader(appConfig.Trial.FilePath)
		logger.Info("reading trial table from %s", appConfig.Trial.FilePath)
	} else {
		opts := testkit.DefaultTrialTableOptions()
		if appConfig.Trial.BeforeYear == 0 {
			appConfig.Trial.BeforeYear = opts.BeforeYear
			appConfig.Trial.AfterYear = opts.AfterYear
		}
		reader = testkit.NewSyntheticTrialReader(appConfig.Analysis.Seed, opts)
		logger.Warn("TRIAL_FILE not set, serving a synthetic trial table")
	}

	rngPort := testkit.NewRNGAdapter()
	simulation := app.NewSimulationService(rngPort, store, logger)
	reanalysis := app.NewReanalysisService(reader, rngPort, store, logger)

	server := ui.NewServer(simulation, reanalysis, store, appConfig, logger)
	if err := server.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
