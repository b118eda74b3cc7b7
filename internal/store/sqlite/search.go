// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sqlite

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-connector/internal/ranking"
	"github.com/pdiddy/research-connector/pkg/types"
)

// SearchPapers scans every embedded paper, optionally restricted to topics,
// and returns the limit most similar by cosine.
func (s *Store) SearchPapers(ctx context.Context, embedding []float32, topics []int, limit int) ([]types.ScoredPaper, error) {
	query := `SELECT p.id, p.title, COALESCE(p.abstract, ''), p.embedding FROM papers p
		WHERE p.embedding IS NOT NULL`
	var args []any
	if len(topics) > 0 {
		marks, topicArgs := inClause(topics)
		query += ` AND EXISTS (SELECT 1 FROM paper_sdgs ps
			WHERE ps.paper_id = p.id AND ps.sdg_id IN (` + marks + `))`
		args = append(args, topicArgs...)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scanning papers: %w", err)
	}

	var results []types.ScoredPaper
	for rows.Next() {
		var (
			p    types.ScoredPaper
			blob []byte
		)
		if err := rows.Scan(&p.PaperID, &p.Title, &p.Abstract, &blob); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("paper %s: %w", p.PaperID, err)
		}
		if len(vec) != len(embedding) {
			continue
		}
		p.SimilarityScore = ranking.Clamp01(ranking.Cosine(embedding, vec))
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("scanning papers: %w", err)
	}
	rows.Close()

	ranking.SortPapers(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	for i := range results {
		if results[i].Authors, err = s.paperAuthors(ctx, results[i].PaperID); err != nil {
			return nil, err
		}
		if results[i].TopicIDs, err = s.paperTopics(ctx, results[i].PaperID); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *Store) paperAuthors(ctx context.Context, paperID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.name FROM author_papers ap JOIN authors a ON a.id = ap.author_id
		 WHERE ap.paper_id = ? ORDER BY ap.author_order, a.name`, paperID)
	if err != nil {
		return nil, fmt.Errorf("loading authors of %s: %w", paperID, err)
	}
	defer rows.Close()

	authors := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning author: %w", err)
		}
		authors = append(authors, name)
	}
	return authors, rows.Err()
}

func (s *Store) paperTopics(ctx context.Context, paperID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sdg_id FROM paper_sdgs WHERE paper_id = ? ORDER BY sdg_id`, paperID)
	if err != nil {
		return nil, fmt.Errorf("loading topics of %s: %w", paperID, err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
