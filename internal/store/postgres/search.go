// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/pkg/types"
)

// SearchPapers calls the search_papers function. The vector is sent in its
// text form and cast server side, so the pool needs no registered types.
func (s *Store) SearchPapers(ctx context.Context, embedding []float32, topics []int, limit int) ([]types.ScoredPaper, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query embedding has %d values, want %d",
			store.ErrInvalidData, len(embedding), s.dimension)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT paper_id::text, title, abstract, authors, similarity_score, sdg_ids
		 FROM search_papers($1::vector, $2::integer[], $3)`,
		pgvector.NewVector(embedding), topicsArg(topics), limitArg(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", translate(err))
	}
	papers, err := pgx.CollectRows(rows, pgx.RowToStructByPos[types.ScoredPaper])
	if err != nil {
		return nil, fmt.Errorf("scanning search results: %w", translate(err))
	}
	return papers, nil
}
