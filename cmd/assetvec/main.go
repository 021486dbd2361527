// Package main is the entry point for the assetvec CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/infrahive/assetvec/internal/config"
	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// SIGINT/SIGTERM cancel the run context; an in-flight transaction
	// rolls back rather than committing partial work.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	run := func(cmd *cobra.Command, args []string) error {
		return runBackfill(cmd.Context(), envFile)
	}

	cmd := &cobra.Command{
		Use:   "assetvec",
		Short: "Embedding backfill for the asset inventory",
		Long:  `Assetvec embeds cloud resource records from the asset inventory database so they can be searched semantically. Running it without a subcommand runs the backfill.`,
		RunE:  run,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(backfillCmd(run))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
