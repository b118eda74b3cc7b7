// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-connector/pkg/types"
)

// QueryFile is the on-disk representation of a search and its results.
// A saved search can be reloaded and re-run, or printed without querying
// the store again.
type QueryFile struct {
	Query   Request             `yaml:"query"`
	Results []types.ScoredPaper `yaml:"results"`
	Summary QuerySummary        `yaml:"summary"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total     int       `yaml:"total"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves the normalised request and its results to a YAML file.
func WriteQueryFile(path string, out Output, now time.Time) error {
	qf := QueryFile{
		Query:   out.Request,
		Results: results(out),
		Summary: QuerySummary{
			Total:     len(out.Results),
			Timestamp: now.UTC(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Output returns the stored search as an Output.
func (qf *QueryFile) Output() Output {
	return Output{Request: qf.Query, Results: qf.Results}
}
