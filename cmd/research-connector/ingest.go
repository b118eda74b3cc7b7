// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-connector/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import-papers <csv>",
	Short: "Load papers, authors and SDG tags from a CSV export",
	Long: `Import-papers reads a CSV with a header row and creates the institution,
author and paper of every row, links the author to the paper and tags its
SDGs. Every row needs an embedding column of the configured dimension; run
generate-embeddings first. Existing records are reused, so an interrupted
import can be run again.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var generateCmd = &cobra.Command{
	Use:   "generate-embeddings <input.csv> <output.csv>",
	Short: "Add an embedding column to a CSV export",
	Long: `Generate-embeddings embeds the title and abstract (or a combined_text
column) of every row and writes the CSV again with an embedding column.
Rows without text, or whose embedding fails, get an empty embedding and are
reported; the run does not stop.`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

func init() {
	importCmd.Flags().Int("default-sdg", 0, "SDG to tag rows that carry no SDG column (1-17)")
	importCmd.Flags().Float64("confidence", 0, "confidence of imported SDG tags (default from ingest.default_confidence)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(generateCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := app.cfg.Ingest
	if cmd.Flags().Changed("default-sdg") {
		cfg.DefaultTopic, _ = cmd.Flags().GetInt("default-sdg")
	}
	if cmd.Flags().Changed("confidence") {
		cfg.DefaultConfidence, _ = cmd.Flags().GetFloat64("confidence")
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	im := ingest.NewImporter(ingest.ImporterDeps{
		Catalog:   st,
		Config:    cfg,
		Dimension: app.cfg.Embedding.Dimension,
		Metrics:   app.metrics,
		Logger:    app.log,
	})
	_, err = im.ImportFile(ctx, args[0], cmd.OutOrStdout())
	return err
}

func runGenerate(cmd *cobra.Command, args []string) error {
	embedder, err := openEmbedder(app.cfg)
	if err != nil {
		return err
	}

	gen := ingest.NewGenerator(ingest.GeneratorDeps{
		Provider:      embedder,
		Dimension:     app.cfg.Embedding.Dimension,
		ProgressEvery: app.cfg.Ingest.ProgressEvery,
		Metrics:       app.metrics,
		Logger:        app.log,
	})
	summary, err := gen.GenerateFile(cmd.Context(), args[0], args[1], cmd.OutOrStdout())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Embedded %d rows. Blank %d. Failed %d.\n", summary.Embedded, summary.Blank, summary.Failed)
	return nil
}
