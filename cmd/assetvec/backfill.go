package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/infrahive/assetvec/application/service"
	"github.com/infrahive/assetvec/infrastructure/persistence"
	"github.com/infrahive/assetvec/infrastructure/provider"
	"github.com/infrahive/assetvec/internal/config"
	"github.com/infrahive/assetvec/internal/database"
	"github.com/infrahive/assetvec/internal/log"
	"github.com/spf13/cobra"
)

func backfillCmd(run func(*cobra.Command, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Embed every resource row and write the vectors back",
		Long: `Embed every resource row and write the vectors back.

Reads all rows from the resource_embeddings table, renders each resource
as text, computes an embedding for it, and stores the vector in a single
transaction. An empty table is seeded with sample resources first, so a
fresh database produces a working demo. After the commit the job verifies
the embedded counts without touching the data.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables

Environment variables:
  POSTGRES_HOST                Database host (default: localhost)
  POSTGRES_PORT                Database port (default: 5432)
  POSTGRES_DB                  Database name (default: asset_inventory)
  POSTGRES_USER                Database user (default: postgres)
  POSTGRES_PASSWORD            Database password (default: postgres)
  DB_URL                       Full database URL; overrides the POSTGRES_* parts
                               (also accepts sqlite:///path for local runs)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  MODEL_DIR                    ONNX model directory (default: models/all-MiniLM-L6-v2)
  EMBEDDING_PROVIDER           Embedding backend: local, endpoint (default: local)

  EMBEDDING_ENDPOINT_*         Remote embedding service (EMBEDDING_PROVIDER=endpoint)
    BASE_URL                   Base URL (e.g., https://api.openai.com/v1)
    MODEL                      Model identifier (e.g., text-embedding-3-small)
    API_KEY                    API key for authentication
    TIMEOUT                    Request timeout in seconds (default: 60)`,
		RunE: run,
	}
}

func runBackfill(ctx context.Context, envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	logger := log.Configure(cfg)
	slogger := logger.Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(ctx, slog.LevelInfo, "starting backfill", attrs...)

	db, err := database.NewDatabase(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slogger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	driver := "postgres"
	if db.IsSQLite() {
		driver = "sqlite"
	}
	slogger.Info("database connected", slog.String("driver", driver))

	store, err := persistence.NewResourceStore(ctx, db, slogger)
	if err != nil {
		return fmt.Errorf("open resource store: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := embedder.Close(); err != nil {
			slogger.Error("failed to close embedder", slog.Any("error", err))
		}
	}()

	job := service.NewBackfill(store, embedder, slogger)
	report, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	printReport(report)
	return nil
}

// buildEmbedder selects the embedding backend from configuration.
func buildEmbedder(cfg config.AppConfig) (provider.Embedder, error) {
	switch cfg.Provider() {
	case config.ProviderEndpoint:
		endpoint := cfg.Endpoint()
		if endpoint == nil || !endpoint.IsConfigured() {
			return nil, errors.New("EMBEDDING_PROVIDER=endpoint requires EMBEDDING_ENDPOINT_BASE_URL")
		}
		return provider.NewOpenAIEmbedder(provider.OpenAIConfig{
			APIKey:  endpoint.APIKey(),
			BaseURL: endpoint.BaseURL(),
			Model:   endpoint.Model(),
			Timeout: endpoint.Timeout(),
		}), nil
	default:
		return provider.NewHugotEmbedder(cfg.ModelDir()), nil
	}
}

func printReport(report service.Report) {
	fmt.Printf("Backfill complete in %s\n", report.Duration.Round(time.Millisecond))
	fmt.Printf("  seeded:    %d\n", report.Seeded)
	fmt.Printf("  processed: %d\n", report.Processed)
	fmt.Printf("  embedded:  %d/%d rows\n", report.Stats.WithEmbedding(), report.Stats.Total())
	if report.SampleResourceID != "" {
		fmt.Printf("  sample:    %s/%s %s\n", report.SampleResourceType, report.SampleResourceID, report.PreviewString())
	}
}
