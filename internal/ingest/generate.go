// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-connector/internal/embedding"
	"github.com/pdiddy/research-connector/internal/logging"
	"github.com/pdiddy/research-connector/internal/metrics"
)

// GenerateSummary counts the outcome of an embedding run.
type GenerateSummary struct {
	Embedded int
	Blank    int
	Failed   int
}

// Total returns the number of rows written.
func (s GenerateSummary) Total() int { return s.Embedded + s.Blank + s.Failed }

// GeneratorDeps wires a Generator. Metrics and Logger are optional.
type GeneratorDeps struct {
	Provider      embedding.Provider
	Dimension     int
	ProgressEvery int
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// Generator adds an embedding column to CSV files.
type Generator struct {
	provider  embedding.Provider
	dimension int
	progress  int
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewGenerator returns a Generator.
func NewGenerator(d GeneratorDeps) *Generator {
	g := &Generator{
		provider:  d.Provider,
		dimension: d.Dimension,
		progress:  d.ProgressEvery,
		metrics:   d.Metrics,
		log:       logging.OrNop(d.Logger),
	}
	if g.dimension <= 0 {
		g.dimension = embedding.DefaultDimension
	}
	if g.progress <= 0 {
		g.progress = DefaultProgress
	}
	return g
}

// InputText returns the text embedded for row: the combined-text column
// when present, else "Title: t\n\nAbstract: a". A row with neither title
// nor abstract yields "".
func InputText(row Row) string {
	if combined := row.Get(colCombined...); combined != "" {
		return combined
	}
	title, abstract := row.Get(colTitle...), row.Get(colAbstract...)
	if title == "" && abstract == "" {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("Title: %s\n\nAbstract: %s", title, abstract))
}

// GenerateFile embeds every row of in and writes the rows to out with the
// embedding column added or replaced. A row that cannot be embedded is
// written with an empty embedding; the run never stops on a row.
func (g *Generator) GenerateFile(ctx context.Context, in, out string, w io.Writer) (GenerateSummary, error) {
	if abs, err := filepath.Abs(in); err == nil {
		in = abs
	}
	if abs, err := filepath.Abs(out); err == nil {
		out = abs
	}
	fmt.Fprintf(w, "Reading %s\n", in)

	t, err := readTable(in)
	if err != nil {
		return GenerateSummary{}, err
	}
	if len(t.records) == 0 {
		return GenerateSummary{}, fmt.Errorf("%s: %w", in, ErrEmptyFile)
	}

	header := append([]string(nil), t.header...)
	col := indexOf(header, embeddingColumn)
	if col < 0 {
		header = append(header, embeddingColumn)
		col = len(header) - 1
	}

	rows := make([][]string, 0, len(t.records))
	var sum GenerateSummary
	for i, rec := range t.records {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		line := i + 2

		outRec := make([]string, len(header))
		copy(outRec, rec)
		outRec[col] = ""

		text := InputText(t.row(i))
		if text == "" {
			sum.Blank++
			g.metrics.IngestRow("blank")
			fmt.Fprintf(w, "warning: skipping line %d due to missing text content\n", line)
			rows = append(rows, outRec)
			continue
		}

		vec, err := g.embed(ctx, text)
		if err != nil {
			sum.Failed++
			g.metrics.IngestRow("failed")
			fmt.Fprintf(w, "error: failed to embed line %d: %v\n", line, err)
			g.log.Warn("embed row failed", zap.Int("line", line), zap.Error(err))
			rows = append(rows, outRec)
			continue
		}

		outRec[col] = FormatEmbedding(vec)
		rows = append(rows, outRec)
		sum.Embedded++
		g.metrics.IngestRow("embedded")
		if sum.Embedded%g.progress == 0 {
			fmt.Fprintf(w, "Generated embeddings for %d rows...\n", sum.Embedded)
		}
	}

	if err := writeTable(out, header, rows); err != nil {
		return sum, err
	}
	fmt.Fprintf(w, "Done! Wrote updated CSV with embeddings to %s\n", out)
	return sum, nil
}

func (g *Generator) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, embedding.ErrMissingEmbedding
	}
	if err := embedding.CheckDimension(vec, g.dimension); err != nil {
		return nil, err
	}
	return vec, nil
}

// writeTable writes to a temp file in the target directory and renames it
// into place.
func writeTable(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}

func indexOf(items []string, s string) int {
	for i, v := range items {
		if v == s {
			return i
		}
	}
	return -1
}
