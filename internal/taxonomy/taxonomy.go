// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package taxonomy provides the fixed topic taxonomy (the 17 UN Sustainable
// Development Goals) and helpers to parse topic ID lists.
package taxonomy

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-connector/pkg/types"
)

//go:embed topics.yaml
var topicsYAML []byte

// Topics returns the taxonomy ordered by ID.
func Topics() ([]types.Topic, error) {
	var topics []types.Topic
	if err := yaml.Unmarshal(topicsYAML, &topics); err != nil {
		return nil, fmt.Errorf("parsing embedded topics: %w", err)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	for i, t := range topics {
		if t.ID != i+1 {
			return nil, fmt.Errorf("embedded topics: expected id %d, found %d", i+1, t.ID)
		}
	}
	if len(topics) != types.TopicCount {
		return nil, fmt.Errorf("embedded topics: expected %d entries, found %d", types.TopicCount, len(topics))
	}
	return topics, nil
}

// ParseIDs parses a list such as "3, 13|6" into sorted, de-duplicated topic
// IDs. Entries are separated by commas or pipes. Any entry that is not a
// valid topic ID is an error; an empty string yields nil.
func ParseIDs(s string) ([]int, error) {
	var ids []int
	seen := make(map[int]bool)
	for _, field := range strings.FieldsFunc(s, isListSep) {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil || !types.ValidTopicID(id) {
			return nil, fmt.Errorf("invalid topic %q: must be an integer from 1 to %d", field, types.TopicCount)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// Normalize sorts and de-duplicates ids, returning an error for any ID
// outside the taxonomy.
func Normalize(ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !types.ValidTopicID(id) {
			return nil, fmt.Errorf("invalid topic %d: must be from 1 to %d", id, types.TopicCount)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Label formats ids as "SDG 3, 13".
func Label(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "SDG " + strings.Join(parts, ", ")
}

func isListSep(r rune) bool { return r == ',' || r == '|' }
