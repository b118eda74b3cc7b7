// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-connector/pkg/types"
)

func withConfig(t *testing.T, cfg types.Config) {
	t.Helper()
	prev := app.cfg
	app.cfg = cfg
	t.Cleanup(func() { app.cfg = prev })
}

func newTestCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd
}

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
}

// --- generate-embeddings ---

func TestRunGenerateRowFailureExitsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.Text, "Broken") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[1,0,0]}`))
	}))
	defer srv.Close()

	withConfig(t, types.Config{Embedding: types.EmbeddingConfig{
		Provider:   types.ProviderEndpoint,
		BaseURL:    srv.URL,
		Dimension:  3,
		MaxRetries: -1,
	}})

	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	outPath := filepath.Join(dir, "out.csv")
	writeCSV(t, in, [][]string{
		{"TITLE", "ABSTRACT"},
		{"Engines", "Analytical engines"},
		{"Broken", "This row fails upstream"},
	})

	var out bytes.Buffer
	require.NoError(t, runGenerate(newTestCmd(&out), []string{in, outPath}))
	assert.Contains(t, out.String(), "failed to embed line 3")
	assert.Contains(t, out.String(), "Embedded 1 rows. Blank 0. Failed 1.")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "embedding", records[0][2])
	assert.NotEmpty(t, records[1][2])
	assert.Empty(t, records[2][2])
}

// --- import-papers ---

func TestRunImportSkippedRowExitsZero(t *testing.T) {
	dir := t.TempDir()
	withConfig(t, types.Config{
		Store:     types.StoreConfig{Backend: types.BackendSQLite, SQLitePath: filepath.Join(dir, "rc.db")},
		Embedding: types.EmbeddingConfig{Dimension: 3},
	})

	in := filepath.Join(dir, "papers.csv")
	writeCSV(t, in, [][]string{
		{"First Name", "Last Name", "TITLE", "ABSTRACT", "SDGs", "embedding"},
		{"Ada", "Lovelace", "Engines", "Analytical engines", "9", "[1,0,0]"},
		{"Grace", "Hopper", "Compilers", "Early compilers", "4", "[1,0]"},
	})

	cmd := newTestCmd(&bytes.Buffer{})
	cmd.Flags().Int("default-sdg", 0, "")
	cmd.Flags().Float64("confidence", 0, "")
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, runImport(cmd, []string{in}))
	assert.Contains(t, out.String(), "skipping line 3 due to incorrect embedding dimension")
	assert.Contains(t, out.String(), "Done! Imported 1 papers. Skipped 1.")
}
