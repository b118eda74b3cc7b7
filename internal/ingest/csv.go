// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/research-connector/pkg/types"
)

// Column names recognised in CSV headers. Where several are listed the
// first non-empty value wins.
var (
	colFirstName   = []string{"First Name"}
	colLastName    = []string{"Last Name"}
	colEmail       = []string{"Email"}
	colInstitution = []string{"Primary College (Most Recent)"}
	colTitle       = []string{"TITLE", "Title"}
	colAbstract    = []string{"ABSTRACT", "Abstract"}
	colEmbedding   = []string{"embedding", "Embedding"}
	colTopics      = []string{"sdg_ids", "SDGs", "sdg", "SDG"}
	colCombined    = []string{"_combined_text", "combined_text"}
)

// embeddingColumn is the column written by the generator.
const embeddingColumn = "embedding"

// Row is one CSV record keyed by header name.
type Row map[string]string

// Get returns the first non-empty trimmed value among keys.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

// table is a parsed CSV file.
type table struct {
	header  []string
	records [][]string
}

// row returns record i keyed by header. Short records leave the missing
// columns empty.
func (t *table) row(i int) Row {
	r := make(Row, len(t.header))
	rec := t.records[i]
	for j, name := range t.header {
		if j < len(rec) {
			r[name] = rec[j]
		}
	}
	return r
}

// readTable reads a CSV file with a header row. Blank lines are skipped.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &table{header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if isBlank(rec) {
			continue
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseEmbedding parses "[0.1, 0.2]" or "0.1,0.2". Brackets are optional
// and entries that are not finite numbers are dropped. It returns nil when
// nothing parses.
func ParseEmbedding(raw string) []float32 {
	cleaned := strings.TrimSpace(strings.NewReplacer("[", "", "]", "").Replace(raw))
	if cleaned == "" {
		return nil
	}
	var out []float32
	for _, part := range strings.Split(cleaned, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, float32(v))
	}
	return out
}

// FormatEmbedding renders vec as comma-separated values.
func FormatEmbedding(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

// ParseTopics splits raw on ',' or '|' and keeps whole numbers within the
// taxonomy, sorted and de-duplicated. Other entries are dropped.
func ParseTopics(raw string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '|' }) {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v != math.Trunc(v) {
			continue
		}
		id := int(v)
		if types.ValidTopicID(id) && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// FallbackEmail builds first.last@domain from the name parts, keeping only
// lowercase letters and dots. It returns "" when nothing is left.
func FallbackEmail(first, last, domain string) string {
	var parts []string
	for _, p := range []string{first, last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	var b strings.Builder
	for _, r := range strings.ToLower(strings.Join(parts, ".")) {
		if (r >= 'a' && r <= 'z') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || domain == "" {
		return ""
	}
	return b.String() + "@" + domain
}
