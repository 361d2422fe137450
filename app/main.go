package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/tripatlas/place-comb/app/category"
	"github.com/tripatlas/place-comb/app/database"
	"github.com/tripatlas/place-comb/app/enrich"
	"github.com/tripatlas/place-comb/app/facet"
	"github.com/tripatlas/place-comb/app/importer"
)

// AppConfig holds all application configuration with support for
// environment variables and command-line flags.
type AppConfig struct {
	Files       []string `long:"file" env:"SOURCE_FILE" env-delim:"," description:"Source JSON file to import (repeatable)" required:"true"`
	DatasetType string   `long:"type" env:"DATASET_TYPE" default:"architecture" choice:"architecture" choice:"attraction" choice:"cemetery" description:"Dataset type of the source files"`
	DBPath      string   `long:"db-path" env:"DB_PATH" default:"./places.db" description:"SQLite database location"`
	ReportsDir  string   `long:"reports-dir" env:"REPORTS_DIR" default:"./reports" description:"Directory for import report files"`

	DryRun bool `long:"dry-run" description:"Validate and report without writing"`
	Limit  int  `long:"limit" description:"Cap the number of processed records (0 = no cap)"`
	Resume bool `long:"resume" description:"Skip identifiers already checkpointed by a previous run"`

	Enrich         bool   `long:"enrich" description:"Enable external knowledge base enrichment"`
	EnrichEndpoint string `long:"enrich-endpoint" env:"ENRICH_ENDPOINT" default:"https://www.wikidata.org/w/api.php" description:"Knowledge base API endpoint"`
	EnrichRate     int    `long:"enrich-rate" env:"ENRICH_RATE" default:"10" description:"Enrichment requests per second"`
	EnrichWorkers  int    `long:"enrich-workers" env:"ENRICH_WORKERS" default:"4" description:"Bounded enrichment worker count"`

	BatchSize int    `long:"batch-size" env:"BATCH_SIZE" default:"50" description:"Places per persistence transaction"`
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"PlaceComb/1.0" description:"User agent string for HTTP requests"`
	Verbose   bool   `long:"verbose" short:"v" description:"Enable debug logging"`
}

func main() {
	appConfig := loadConfig()
	if appConfig == nil {
		// Help was shown or parsing failed, exit gracefully
		return
	}

	level := slog.LevelInfo
	if appConfig.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting place import", "files", appConfig.Files, "type", appConfig.DatasetType)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	classifier, err := category.NewClassifier()
	if err != nil {
		slog.Error("Failed to load category rules", "error", err)
		os.Exit(1)
	}

	dictionary, err := facet.NewDictionary()
	if err != nil {
		slog.Error("Failed to load facet dictionary", "error", err)
		os.Exit(1)
	}
	generator := facet.NewGenerator(dictionary)

	var enricher *enrich.Client
	if appConfig.Enrich {
		enricher = enrich.NewClient(appConfig.EnrichEndpoint, appConfig.EnrichRate, appConfig.UserAgent)
	}

	processor := importer.NewProcessor(importer.Options{
		FilePaths:   appConfig.Files,
		DatasetType: appConfig.DatasetType,
		DryRun:      appConfig.DryRun,
		Limit:       appConfig.Limit,
		Resume:      appConfig.Resume,
		Enrich:      appConfig.Enrich,
		BatchSize:   appConfig.BatchSize,
		Workers:     appConfig.EnrichWorkers,
		ReportsDir:  appConfig.ReportsDir,
	}, classifier, generator, enricher,
		database.NewPlaceRepository(db), database.NewRunRepository(db), db)

	rep, err := processor.Run(context.Background())
	if err != nil {
		slog.Error("Import run failed", "error", err)
		os.Exit(1)
	}

	path, err := rep.WriteFile(appConfig.ReportsDir)
	if err != nil {
		slog.Error("Failed to write report", "error", err)
		os.Exit(1)
	}
	slog.Info("Report written", "path", path)

	rep.LogSummary()
}

// loadConfig loads configuration from environment variables and
// command-line flags.
func loadConfig() *AppConfig {
	var appConfig AppConfig

	parser := flags.NewParser(&appConfig, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		os.Exit(2)
	}

	return &appConfig
}
