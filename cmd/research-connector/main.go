// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the research-connector CLI: the HTTP
// service, semantic search, collaborator recommendations and the CSV batch
// tools that load the catalog.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/research-connector/internal/config"
	"github.com/pdiddy/research-connector/internal/logging"
	"github.com/pdiddy/research-connector/internal/metrics"
	"github.com/pdiddy/research-connector/internal/secrets"
	"github.com/pdiddy/research-connector/internal/tracing"
	"github.com/pdiddy/research-connector/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// app holds what PersistentPreRunE prepared for the subcommands.
var app struct {
	cfg      types.Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	shutdown func(context.Context) error
}

// rootCmd is the base command for the research-connector CLI.
var rootCmd = &cobra.Command{
	Use:   "research-connector",
	Short: "Semantic paper search and collaborator recommendations by SDG",
	Long: `research-connector helps researchers find papers and peers working on the
same Sustainable Development Goals. It serves the HTTP API behind the web
client, answers searches from the command line, and loads the paper catalog
from CSV exports.

Configuration comes from research-connector.yaml, RESEARCH_CONNECTOR_* and
the legacy variables (OPENAI_API_KEY, DATABASE_URL, ...), .env/.env.local,
and the .secrets/ directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./research-connector.yaml or ~/.config/research-connector/research-connector.yaml)")
}

// setup loads secrets and configuration and builds the logger, metrics and
// tracer shared by every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	s, err := secrets.Load(".secrets/", os.Stderr)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
	}

	if err := config.LoadEnvFiles("."); err != nil {
		return err
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	v, used, err := config.New(cfgFile)
	if err != nil {
		return err
	}
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}

	cfg, err := config.Decode(v, s)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	shutdown, err := tracing.Setup(cmd.Context(), cfg.Tracing)
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.log = log
	app.metrics = metrics.New()
	app.shutdown = shutdown
	return nil
}

// teardown flushes the tracer and the logger.
func teardown() {
	if app.shutdown != nil {
		if err := app.shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: flushing traces: %v\n", err)
		}
	}
	if app.log != nil {
		_ = app.log.Sync()
	}
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	teardown()
	if err != nil {
		os.Exit(1)
	}
}
