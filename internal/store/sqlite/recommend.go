// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/research-connector/internal/ranking"
	"github.com/pdiddy/research-connector/pkg/types"
)

// RecommendAuthors builds topic profiles from paper_sdgs, scores every other
// author with weighted Jaccard and upserts the top limit as recommendations.
func (s *Store) RecommendAuthors(ctx context.Context, email string, limit int) ([]types.ScoredAuthor, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	requester, err := s.requesterTags(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(requester) == 0 {
		return nil, nil
	}

	candidates, err := s.candidateTags(ctx, email)
	if err != nil {
		return nil, err
	}

	scored := ranking.Recommend(requester, candidates, limit)
	if len(scored) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.timestamp()
	for i := range scored {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO recommendations
				(id, user_email, author_id, similarity_score, shared_sdgs, paper_count, computed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_email, author_id) DO UPDATE SET
				similarity_score = excluded.similarity_score,
				shared_sdgs = excluded.shared_sdgs,
				paper_count = excluded.paper_count,
				computed_at = excluded.computed_at
			 RETURNING id`,
			newID(), email, scored[i].AuthorID, scored[i].SimilarityScore,
			encodeInts(scored[i].SharedTopics), scored[i].PaperCount, now,
		).Scan(&scored[i].RecommendationID)
		if err != nil {
			return nil, fmt.Errorf("saving recommendation for author %s: %w", scored[i].AuthorID, translate(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing recommendations: %w", err)
	}
	return scored, nil
}

func (s *Store) requesterTags(ctx context.Context, email string) ([]ranking.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT ps.paper_id, ps.sdg_id, ps.confidence_score
		 FROM authors a
		 JOIN author_papers ap ON ap.author_id = a.id
		 JOIN paper_sdgs ps ON ps.paper_id = ap.paper_id
		 WHERE lower(a.email) = ?`, email)
	if err != nil {
		return nil, fmt.Errorf("loading topic profile: %w", err)
	}
	defer rows.Close()

	var tags []ranking.Tag
	for rows.Next() {
		var t ranking.Tag
		if err := rows.Scan(&t.PaperID, &t.TopicID, &t.Confidence); err != nil {
			return nil, fmt.Errorf("scanning topic profile: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) candidateTags(ctx context.Context, email string) ([]ranking.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.name, COALESCE(a.email, ''), COALESCE(i.name, ''),
			ps.paper_id, ps.sdg_id, ps.confidence_score
		 FROM authors a
		 LEFT JOIN institutions i ON i.id = a.institution_id
		 JOIN author_papers ap ON ap.author_id = a.id
		 JOIN paper_sdgs ps ON ps.paper_id = ap.paper_id
		 WHERE a.email IS NULL OR lower(a.email) <> ?
		 ORDER BY a.id`, email)
	if err != nil {
		return nil, fmt.Errorf("loading candidate profiles: %w", err)
	}
	defer rows.Close()

	var candidates []ranking.Candidate
	for rows.Next() {
		var (
			a types.AuthorDetail
			t ranking.Tag
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Institution, &t.PaperID, &t.TopicID, &t.Confidence); err != nil {
			return nil, fmt.Errorf("scanning candidate profile: %w", err)
		}
		if n := len(candidates); n == 0 || candidates[n-1].Author.ID != a.ID {
			candidates = append(candidates, ranking.Candidate{Author: a})
		}
		last := &candidates[len(candidates)-1]
		last.Tags = append(last.Tags, t)
	}
	return candidates, rows.Err()
}

// AuthorDetail returns the author with the institution name.
func (s *Store) AuthorDetail(ctx context.Context, authorID string) (types.AuthorDetail, error) {
	var a types.AuthorDetail
	err := s.db.QueryRowContext(ctx,
		`SELECT a.id, a.name, COALESCE(a.email, ''), COALESCE(i.name, '')
		 FROM authors a LEFT JOIN institutions i ON i.id = a.institution_id
		 WHERE a.id = ?`, authorID,
	).Scan(&a.ID, &a.Name, &a.Email, &a.Institution)
	if err != nil {
		return types.AuthorDetail{}, fmt.Errorf("author %s: %w", authorID, translate(err))
	}
	return a, nil
}

// AuthorPapers returns the author's papers ordered by title, restricted to
// topics when given.
func (s *Store) AuthorPapers(ctx context.Context, authorID string, topics []int, limit int) ([]types.PaperSummary, error) {
	query := `SELECT p.id, p.title, COALESCE(p.abstract, '') FROM papers p
		JOIN author_papers ap ON ap.paper_id = p.id
		WHERE ap.author_id = ?`
	args := []any{authorID}
	if len(topics) > 0 {
		marks, topicArgs := inClause(topics)
		query += ` AND EXISTS (SELECT 1 FROM paper_sdgs ps
			WHERE ps.paper_id = p.id AND ps.sdg_id IN (` + marks + `))`
		args = append(args, topicArgs...)
	}
	query += ` ORDER BY p.title, p.id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading papers of %s: %w", authorID, err)
	}
	var papers []types.PaperSummary
	for rows.Next() {
		var p types.PaperSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.Abstract); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("loading papers of %s: %w", authorID, err)
	}
	rows.Close()

	for i := range papers {
		if papers[i].TopicIDs, err = s.paperTopics(ctx, papers[i].ID); err != nil {
			return nil, err
		}
	}
	return papers, nil
}
