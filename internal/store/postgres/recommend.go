// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pdiddy/research-connector/pkg/types"
)

// defaultRecommendLimit matches the SQL function's default.
const defaultRecommendLimit = 10

// RecommendAuthors calls get_recommendations_for_user, which scores and
// persists in one statement.
func (s *Store) RecommendAuthors(ctx context.Context, email string, limit int) ([]types.ScoredAuthor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if limit <= 0 {
		limit = defaultRecommendLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT recommendation_id::text, author_id::text, author_name, author_email,
			institution_name, similarity_score, shared_sdgs, paper_count
		 FROM get_recommendations_for_user($1, $2)`,
		email, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("computing recommendations: %w", translate(err))
	}
	authors, err := pgx.CollectRows(rows, pgx.RowToStructByPos[types.ScoredAuthor])
	if err != nil {
		return nil, fmt.Errorf("scanning recommendations: %w", translate(err))
	}
	return authors, nil
}

// AuthorDetail returns the author with the institution name.
func (s *Store) AuthorDetail(ctx context.Context, authorID string) (types.AuthorDetail, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id::text, a.name, COALESCE(a.email, ''), COALESCE(i.name, '')
		 FROM authors a LEFT JOIN institutions i ON i.id = a.institution_id
		 WHERE a.id = $1::uuid`, authorID)
	if err != nil {
		return types.AuthorDetail{}, fmt.Errorf("author %s: %w", authorID, translate(err))
	}
	a, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[types.AuthorDetail])
	if err != nil {
		return types.AuthorDetail{}, fmt.Errorf("author %s: %w", authorID, translate(err))
	}
	return a, nil
}

// AuthorPapers returns the author's papers ordered by title, restricted to
// topics when given. Every paper carries all of its topic tags.
func (s *Store) AuthorPapers(ctx context.Context, authorID string, topics []int, limit int) ([]types.PaperSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id::text, p.title, COALESCE(p.abstract, ''),
			COALESCE((SELECT array_agg(ps.sdg_id ORDER BY ps.sdg_id)
			          FROM paper_sdgs ps WHERE ps.paper_id = p.id), '{}')
		 FROM papers p
		 JOIN author_papers ap ON ap.paper_id = p.id
		 WHERE ap.author_id = $1::uuid
		   AND ($2::integer[] IS NULL OR EXISTS (
				SELECT 1 FROM paper_sdgs ps WHERE ps.paper_id = p.id AND ps.sdg_id = ANY ($2::integer[])))
		 ORDER BY p.title, p.id
		 LIMIT $3`,
		authorID, topicsArg(topics), limitArg(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("loading papers of %s: %w", authorID, translate(err))
	}
	papers, err := pgx.CollectRows(rows, pgx.RowToStructByPos[types.PaperSummary])
	if err != nil {
		return nil, fmt.Errorf("scanning papers of %s: %w", authorID, translate(err))
	}
	return papers, nil
}
