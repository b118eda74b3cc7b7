// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ScoredPaper is one row of a similarity search. The field names match the
// search_papers RPC so the JSON shape is the same for every backend.
type ScoredPaper struct {
	// PaperID identifies the paper in the catalog.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract; empty when the catalog has none.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists author names in authorship order.
	Authors []string `json:"authors" yaml:"authors"`

	// SimilarityScore is the cosine similarity to the query, clamped to [0,1].
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`

	// TopicIDs lists the paper's topic tags in ascending order.
	TopicIDs []int `json:"sdg_ids" yaml:"sdg_ids"`
}

// HasAnyTopic reports whether the paper carries at least one of topics.
func (p ScoredPaper) HasAnyTopic(topics []int) bool {
	for _, have := range p.TopicIDs {
		for _, want := range topics {
			if have == want {
				return true
			}
		}
	}
	return false
}

// SearchQuery is the append-only analytics record of one search.
type SearchQuery struct {
	ID           string    `json:"id" yaml:"id"`
	UserID       string    `json:"user_id" yaml:"user_id"`
	QueryText    string    `json:"query_text" yaml:"query_text"`
	TopicFilters []int     `json:"sdg_filters" yaml:"sdg_filters"`
	ResultsCount int       `json:"results_count" yaml:"results_count"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}
