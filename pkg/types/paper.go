// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures for research-connector:
// the paper catalog (Paper, Author, Institution, Topic), search and
// recommendation results, the activity log records, and configuration.
package types

// TopicCount is the number of entries in the topic taxonomy. Topic IDs run
// from 1 to TopicCount inclusive.
const TopicCount = 17

// ValidTopicID reports whether id names an entry of the taxonomy.
func ValidTopicID(id int) bool {
	return id >= 1 && id <= TopicCount
}

// Topic is one entry of the domain taxonomy (a Sustainable Development Goal).
type Topic struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Color       string `json:"color" yaml:"color"`
}

// Institution is a research institution. Name is the natural key.
type Institution struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Country  string `json:"country,omitempty" yaml:"country,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Author is a paper author. (Name, InstitutionID) is the natural key.
type Author struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Email         string `json:"email,omitempty" yaml:"email,omitempty"`
	InstitutionID string `json:"institution_id" yaml:"institution_id"`
}

// AuthorDetail is an author resolved with the institution name, as shown
// in a recommendation drill-down.
type AuthorDetail struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	Institution string `json:"institution,omitempty" yaml:"institution,omitempty"`
}

// Paper is a catalog entry. Title is the natural key and Embedding always
// has the deployment's configured dimension.
type Paper struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Abstract  string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Embedding []float32 `json:"-" yaml:"-"`
}

// PaperSummary is a paper without its embedding, carrying its topic tags.
type PaperSummary struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	TopicIDs []int  `json:"sdg_ids" yaml:"sdg_ids"`
}

// User is an application user, identified by the auth gateway.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}
