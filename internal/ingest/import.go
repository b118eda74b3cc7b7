// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest loads papers from CSV exports into the catalog and adds
// embedding columns to CSV files.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-connector/internal/embedding"
	"github.com/pdiddy/research-connector/internal/logging"
	"github.com/pdiddy/research-connector/internal/metrics"
	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/pkg/types"
)

// Defaults applied when IngestConfig leaves a field zero.
const (
	DefaultConfidence  = 0.8
	DefaultEmailDomain = "byu.edu"
	DefaultInstitution = "Brigham Young University"
	DefaultCountry     = "USA"
	DefaultCategory    = "university"
	DefaultProgress    = 50
)

var (
	// ErrInvalidRow is returned when a row lacks a required field.
	ErrInvalidRow = errors.New("invalid row")

	// ErrMissingEmbedding is returned when a row's embedding does not parse.
	ErrMissingEmbedding = errors.New("missing embedding")

	// ErrEmptyFile is returned when a CSV has no data rows.
	ErrEmptyFile = errors.New("CSV file is empty")
)

// Summary counts the outcome of an import run.
type Summary struct {
	Imported int
	Created  int
	Skipped  int
}

// Total returns the number of rows processed.
func (s Summary) Total() int { return s.Imported + s.Skipped }

// ImporterDeps wires an Importer. Metrics and Logger are optional.
type ImporterDeps struct {
	Catalog   store.Catalog
	Config    types.IngestConfig
	Dimension int
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Importer writes CSV rows into the catalog.
type Importer struct {
	catalog   store.Catalog
	cfg       types.IngestConfig
	dimension int
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewImporter returns an Importer with zero config fields defaulted.
func NewImporter(d ImporterDeps) *Importer {
	cfg := d.Config
	if cfg.DefaultConfidence == 0 {
		cfg.DefaultConfidence = DefaultConfidence
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = DefaultEmailDomain
	}
	if cfg.DefaultInstitution == "" {
		cfg.DefaultInstitution = DefaultInstitution
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = DefaultCountry
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = DefaultCategory
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgress
	}
	dim := d.Dimension
	if dim <= 0 {
		dim = embedding.DefaultDimension
	}
	return &Importer{
		catalog:   d.Catalog,
		cfg:       cfg,
		dimension: dim,
		metrics:   d.Metrics,
		log:       logging.OrNop(d.Logger),
	}
}

// rowEmbedding parses and checks a row's embedding column.
func (im *Importer) rowEmbedding(row Row) ([]float32, error) {
	vec := ParseEmbedding(row.Get(colEmbedding...))
	if vec == nil {
		return nil, ErrMissingEmbedding
	}
	if err := embedding.CheckDimension(vec, im.dimension); err != nil {
		return nil, err
	}
	return vec, nil
}

// ImportRow resolves the row's institution, author and paper, links the
// author to the paper and tags its topics. Every step is get-or-create, so
// importing the same row twice changes nothing.
func (im *Importer) ImportRow(ctx context.Context, row Row) (string, bool, error) {
	first, last := row.Get(colFirstName...), row.Get(colLastName...)
	name := strings.TrimSpace(strings.Join(nonEmpty(first, last), " "))
	if name == "" {
		return "", false, fmt.Errorf("%w: missing first/last name", ErrInvalidRow)
	}
	title := row.Get(colTitle...)
	if title == "" {
		return "", false, fmt.Errorf("%w: missing paper title", ErrInvalidRow)
	}
	vec, err := im.rowEmbedding(row)
	if err != nil {
		return "", false, err
	}

	instName := row.Get(colInstitution...)
	if instName == "" {
		instName = im.cfg.DefaultInstitution
	}
	instID, err := im.catalog.FindOrCreateInstitution(ctx, types.Institution{
		Name:     instName,
		Country:  im.cfg.DefaultCountry,
		Category: im.cfg.DefaultCategory,
	})
	if err != nil {
		return "", false, err
	}

	email := row.Get(colEmail...)
	if email == "" {
		email = FallbackEmail(first, last, im.cfg.EmailDomain)
	}
	authorID, err := im.catalog.FindOrCreateAuthor(ctx, types.Author{Name: name, Email: email, InstitutionID: instID})
	if err != nil {
		return "", false, err
	}

	paperID, created, err := im.catalog.FindOrCreatePaper(ctx, types.Paper{
		Title:     title,
		Abstract:  row.Get(colAbstract...),
		Embedding: vec,
	})
	if err != nil {
		return "", false, err
	}

	if err := im.catalog.LinkAuthorPaper(ctx, authorID, paperID); err != nil {
		return "", false, err
	}

	for _, topic := range im.topics(row) {
		if err := im.catalog.TagPaper(ctx, paperID, topic, im.cfg.DefaultConfidence); err != nil {
			return "", false, fmt.Errorf("tagging %q: %w", title, err)
		}
	}
	return paperID, created, nil
}

// topics returns the row's topic column, or the default topic when the
// row has none.
func (im *Importer) topics(row Row) []int {
	if raw := row.Get(colTopics...); raw != "" {
		return ParseTopics(raw)
	}
	if types.ValidTopicID(im.cfg.DefaultTopic) {
		return []int{im.cfg.DefaultTopic}
	}
	return nil
}

// ImportFile imports every row of the CSV at path, printing progress to w.
// The first row's embedding is checked before anything is written; later
// rows that fail are counted as skipped.
func (im *Importer) ImportFile(ctx context.Context, path string, w io.Writer) (Summary, error) {
	if im.cfg.DefaultTopic != 0 && !types.ValidTopicID(im.cfg.DefaultTopic) {
		return Summary{}, fmt.Errorf("%w: default topic %d must be from 1 to %d", ErrInvalidRow, im.cfg.DefaultTopic, types.TopicCount)
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	fmt.Fprintf(w, "Reading %s\n", path)

	t, err := readTable(path)
	if err != nil {
		return Summary{}, err
	}
	if len(t.records) == 0 {
		return Summary{}, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	if _, err := im.rowEmbedding(t.row(0)); err != nil {
		if errors.Is(err, embedding.ErrDimensionMismatch) {
			return Summary{}, fmt.Errorf("first row: %w (re-generate embeddings with %s before importing)", err, embedding.DefaultModel)
		}
		return Summary{}, fmt.Errorf("unable to parse embedding column from the first row: %w", err)
	}

	var sum Summary
	for i := range t.records {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		line := i + 2

		_, created, err := im.ImportRow(ctx, t.row(i))
		switch {
		case errors.Is(err, ErrMissingEmbedding):
			sum.Skipped++
			im.metrics.IngestRow("skipped")
			fmt.Fprintf(w, "warning: skipping line %d due to missing embedding\n", line)
			continue
		case errors.Is(err, embedding.ErrDimensionMismatch):
			sum.Skipped++
			im.metrics.IngestRow("skipped")
			fmt.Fprintf(w, "warning: skipping line %d due to incorrect embedding dimension\n", line)
			continue
		case err != nil:
			sum.Skipped++
			im.metrics.IngestRow("failed")
			fmt.Fprintf(w, "error: failed to import line %d: %v\n", line, err)
			im.log.Warn("import row failed", zap.Int("line", line), zap.Error(err))
			continue
		}

		sum.Imported++
		if created {
			sum.Created++
		}
		im.metrics.IngestRow("imported")
		if sum.Imported%im.cfg.ProgressEvery == 0 {
			fmt.Fprintf(w, "Imported %d papers...\n", sum.Imported)
		}
	}

	fmt.Fprintf(w, "Done! Imported %d papers. Skipped %d.\n", sum.Imported, sum.Skipped)
	return sum, nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
