// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-connector/pkg/types"
)

// FormatTable writes results as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-12s  %s\n",
		"Rank", "Title", "Authors", "SDGs", "Score")
	fmt.Fprintln(w, strings.Repeat("-", 108))

	for i, r := range out.Results {
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-12s  %.3f\n",
			i+1, truncate(r.Title, 60), formatAuthors(r.Authors), formatTopics(r.TopicIDs), r.SimilarityScore)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if len(out.Request.Topics) > 0 {
		fmt.Fprintf(w, " (filtered to %s)", formatTopics(out.Request.Topics))
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results(out))
}

// FormatYAML writes results as YAML to w.
func FormatYAML(out Output, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(results(out)); err != nil {
		return err
	}
	return enc.Close()
}

func results(out Output) []types.ScoredPaper {
	if out.Results == nil {
		return []types.ScoredPaper{}
	}
	return out.Results
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func formatTopics(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return truncate(strings.Join(parts, ","), 12)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
