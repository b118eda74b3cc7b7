// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the SDG taxonomy",
	Long: `Migrate creates the catalog, activity and recommendation tables, the
similarity and recommendation functions on postgres, and seeds the 17 SDG
topics. Running it again is safe.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s store (embedding dimension %d)\n", app.cfg.Store.Backend, app.cfg.Embedding.Dimension)
	return nil
}
