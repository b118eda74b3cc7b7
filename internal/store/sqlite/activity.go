// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/pkg/types"
)

// LogSearch appends a search_logs row.
func (s *Store) LogSearch(ctx context.Context, q types.SearchQuery) error {
	id := q.ID
	if id == "" {
		id = newID()
	}
	created := q.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_logs (id, user_id, query_text, sdg_filters, results_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, nullable(q.UserID), q.QueryText, encodeInts(q.TopicFilters), q.ResultsCount,
		created.UTC().Format(time.RFC3339Nano),
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
	id := newID()
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recommendation_views (id, recommendation_id, user_id, action_taken, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, recommendationID, userID, string(types.ViewViewed), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("logging view of recommendation %s: %w", recommendationID, translate(err))
	}
	return id, nil
}

// MarkEmailSent applies the viewed -> email_sent transition.
func (s *Store) MarkEmailSent(ctx context.Context, viewID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recommendation_views SET action_taken = ?, updated_at = ?
		 WHERE id = ? AND action_taken = ?`,
		string(types.ViewEmailSent), s.timestamp(), viewID, string(types.ViewViewed),
	)
	if err != nil {
		return fmt.Errorf("updating view %s: %w", viewID, translate(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	var action string
	err = s.db.QueryRowContext(ctx,
		`SELECT action_taken FROM recommendation_views WHERE id = ?`, viewID).Scan(&action)
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
