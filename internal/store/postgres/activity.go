// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package postgres

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/pkg/types"
)

// LogSearch appends a search_logs row.
func (s *Store) LogSearch(ctx context.Context, q types.SearchQuery) error {
	filters := q.TopicFilters
	if filters == nil {
		filters = []int{}
	}
	var created any
	if !q.CreatedAt.IsZero() {
		created = q.CreatedAt
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_logs (id, user_id, query_text, sdg_filters, results_count, created_at)
		 VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, COALESCE($6::timestamptz, now()))`,
		nullable(q.ID), nullable(q.UserID), q.QueryText, filters, q.ResultsCount, created,
	)
	if err != nil {
		return fmt.Errorf("logging search: %w", translate(err))
	}
	return nil
}

// CreateRecommendationView inserts a view in state viewed.
func (s *Store) CreateRecommendationView(ctx context.Context, recommendationID, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", store.ErrInvalidData)
	}

	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO recommendation_views (recommendation_id, user_id, action_taken)
		 VALUES ($1::uuid, $2, $3)
		 RETURNING id::text`,
		recommendationID, userID, string(types.ViewViewed),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("logging view of recommendation %s: %w", recommendationID, translate(err))
	}
	return id, nil
}

// MarkEmailSent applies the viewed -> email_sent transition. A view already
// in email_sent is left alone.
func (s *Store) MarkEmailSent(ctx context.Context, viewID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE recommendation_views SET action_taken = $2, updated_at = now()
		 WHERE id = $1::uuid AND action_taken = $3`,
		viewID, string(types.ViewEmailSent), string(types.ViewViewed),
	)
	if err != nil {
		return fmt.Errorf("updating view %s: %w", viewID, translate(err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var action string
	err = s.pool.QueryRow(ctx,
		`SELECT action_taken FROM recommendation_views WHERE id = $1::uuid`, viewID,
	).Scan(&action)
	if err != nil {
		return fmt.Errorf("view %s: %w", viewID, translate(err))
	}
	return checkSettled(viewID, types.ViewAction(action))
}

// checkSettled reports whether a view the transition did not touch is
// already in its final state.
func checkSettled(viewID string, current types.ViewAction) error {
	if current != types.ViewEmailSent && !current.CanTransitionTo(types.ViewEmailSent) {
		return fmt.Errorf("%w: view %s is in state %q", store.ErrInvalidData, viewID, current)
	}
	return nil
}
