// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ScoredAuthor is one recommended peer. The field names match the
// get_recommendations_for_user RPC.
type ScoredAuthor struct {
	// RecommendationID identifies the persisted recommendation instance.
	RecommendationID string `json:"recommendation_id" yaml:"recommendation_id"`

	AuthorID        string `json:"author_id" yaml:"author_id"`
	AuthorName      string `json:"author_name" yaml:"author_name"`
	AuthorEmail     string `json:"author_email,omitempty" yaml:"author_email,omitempty"`
	InstitutionName string `json:"institution_name,omitempty" yaml:"institution_name,omitempty"`

	// SimilarityScore is the weighted Jaccard overlap of the two topic
	// profiles, in [0,1].
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`

	// SharedTopics lists topics present in both profiles, ascending.
	SharedTopics []int `json:"shared_sdgs" yaml:"shared_sdgs"`

	// PaperCount is the number of the candidate's papers tagged with at
	// least one shared topic.
	PaperCount int `json:"paper_count" yaml:"paper_count"`
}

// ViewAction is the follow-through state of a recommendation view.
type ViewAction string

const (
	ViewViewed    ViewAction = "viewed"
	ViewEmailSent ViewAction = "email_sent"
)

// CanTransitionTo reports whether a view in state a may move to next.
// The only transition is viewed -> email_sent.
func (a ViewAction) CanTransitionTo(next ViewAction) bool {
	return a == ViewViewed && next == ViewEmailSent
}

// RecommendationView logs that a user opened a recommendation.
type RecommendationView struct {
	ID               string     `json:"id" yaml:"id"`
	RecommendationID string     `json:"recommendation_id" yaml:"recommendation_id"`
	UserID           string     `json:"user_id" yaml:"user_id"`
	Action           ViewAction `json:"action_taken" yaml:"action_taken"`
	CreatedAt        time.Time  `json:"created_at" yaml:"created_at"`
}
