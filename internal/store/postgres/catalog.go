// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/pkg/types"
)

// FindOrCreateInstitution resolves an institution by its trimmed name.
func (s *Store) FindOrCreateInstitution(ctx context.Context, inst types.Institution) (string, error) {
	name := strings.TrimSpace(inst.Name)
	if name == "" {
		return "", fmt.Errorf("%w: institution name is required", store.ErrInvalidData)
	}

	var id string
	err := retryOnRace(func() error {
		return s.pool.QueryRow(ctx,
			`WITH ins AS (
				INSERT INTO institutions (name, country, type) VALUES ($1, $2, $3)
				ON CONFLICT (name) DO NOTHING
				RETURNING id
			)
			SELECT id::text FROM ins
			UNION ALL
			SELECT id::text FROM institutions WHERE name = $1
			LIMIT 1`,
			name, nullable(inst.Country), nullable(inst.Category),
		).Scan(&id)
	})
	if err != nil {
		return "", fmt.Errorf("resolving institution %q: %w", name, translate(err))
	}
	return id, nil
}

// FindOrCreateAuthor resolves an author by (name, institution). The e-mail
// of an existing author is not changed.
func (s *Store) FindOrCreateAuthor(ctx context.Context, a types.Author) (string, error) {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return "", fmt.Errorf("%w: author name is required", store.ErrInvalidData)
	}

	var id string
	err := retryOnRace(func() error {
		return s.pool.QueryRow(ctx,
			`WITH ins AS (
				INSERT INTO authors (name, email, institution_id) VALUES ($1, $2, $3::uuid)
				ON CONFLICT ON CONSTRAINT authors_name_institution_key DO NOTHING
				RETURNING id
			)
			SELECT id::text FROM ins
			UNION ALL
			SELECT id::text FROM authors WHERE name = $1 AND institution_id IS NOT DISTINCT FROM $3::uuid
			LIMIT 1`,
			name, nullable(strings.TrimSpace(a.Email)), nullable(a.InstitutionID),
		).Scan(&id)
	})
	if err != nil {
		return "", fmt.Errorf("resolving author %q: %w", name, translate(err))
	}
	return id, nil
}

// FindOrCreatePaper resolves a paper by its trimmed title. The embedding of
// a new paper must have the configured dimension; an existing paper keeps
// its stored one.
func (s *Store) FindOrCreatePaper(ctx context.Context, p types.Paper) (string, bool, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return "", false, fmt.Errorf("%w: paper title is required", store.ErrInvalidData)
	}

	var embedding any
	if len(p.Embedding) > 0 {
		if len(p.Embedding) != s.dimension {
			return "", false, fmt.Errorf("%w: paper %q embedding has %d values, want %d",
				store.ErrInvalidData, title, len(p.Embedding), s.dimension)
		}
		embedding = pgvector.NewVector(p.Embedding)
	}

	var (
		id      string
		created bool
	)
	err := retryOnRace(func() error {
		return s.pool.QueryRow(ctx,
			`WITH ins AS (
				INSERT INTO papers (title, abstract, embedding) VALUES ($1, $2, $3::vector)
				ON CONFLICT (title) DO NOTHING
				RETURNING id
			)
			SELECT id::text, true FROM ins
			UNION ALL
			SELECT id::text, false FROM papers WHERE title = $1
			LIMIT 1`,
			title, nullable(strings.TrimSpace(p.Abstract)), embedding,
		).Scan(&id, &created)
	})
	if err != nil {
		return "", false, fmt.Errorf("resolving paper %q: %w", title, translate(err))
	}
	return id, created, nil
}

// retryOnRace runs a get-or-create query again when it returns no row. A
// conflicting insert committed by another session after the statement took
// its snapshot is skipped by ON CONFLICT DO NOTHING and invisible to the
// SELECT branch; the next statement sees it.
func retryOnRace(query func() error) error {
	err := query()
	if errors.Is(err, pgx.ErrNoRows) {
		err = query()
	}
	return err
}

// LinkAuthorPaper records authorship at the next free author position.
// The paper row is locked so concurrent links get distinct positions.
func (s *Store) LinkAuthorPaper(ctx context.Context, authorID, paperID string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx,
			`SELECT id::text FROM papers WHERE id = $1::uuid FOR UPDATE`, paperID,
		).Scan(&locked); err != nil {
			return fmt.Errorf("locking paper %s: %w", paperID, translate(err))
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO author_papers (author_id, paper_id, author_order)
			 SELECT $1::uuid, $2::uuid, COALESCE(MAX(author_order), 0) + 1
			 FROM author_papers WHERE paper_id = $2::uuid
			 ON CONFLICT (author_id, paper_id) DO NOTHING`,
			authorID, paperID,
		)
		if err != nil {
			return fmt.Errorf("linking author %s to paper %s: %w", authorID, paperID, translate(err))
		}
		return nil
	})
}

// TagPaper upserts the confidence of a topic tag.
func (s *Store) TagPaper(ctx context.Context, paperID string, topicID int, confidence float64) error {
	if !types.ValidTopicID(topicID) {
		return fmt.Errorf("%w: topic %d", store.ErrInvalidData, topicID)
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", store.ErrInvalidData, confidence)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO paper_sdgs (paper_id, sdg_id, confidence_score) VALUES ($1::uuid, $2, $3)
		 ON CONFLICT (paper_id, sdg_id) DO UPDATE SET confidence_score = EXCLUDED.confidence_score`,
		paperID, topicID, confidence,
	)
	if err != nil {
		return fmt.Errorf("tagging paper %s with topic %d: %w", paperID, topicID, translate(err))
	}
	return nil
}

// SeedTopics upserts the taxonomy in one batch.
func (s *Store) SeedTopics(ctx context.Context, topics []types.Topic) error {
	batch := &pgx.Batch{}
	for _, t := range topics {
		batch.Queue(
			`INSERT INTO sdgs (id, name, description, color) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, description = EXCLUDED.description, color = EXCLUDED.color`,
			t.ID, t.Name, t.Description, t.Color,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	for _, t := range topics {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("seeding topic %d: %w", t.ID, translate(err))
		}
	}
	return results.Close()
}

// ListTopics returns the taxonomy ordered by ID.
func (s *Store) ListTopics(ctx context.Context) ([]types.Topic, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, ''), COALESCE(color, '') FROM sdgs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	topics, err := pgx.CollectRows(rows, pgx.RowToStructByPos[types.Topic])
	if err != nil {
		return nil, fmt.Errorf("scanning topics: %w", err)
	}
	return topics, nil
}

// EnsureUser gets or creates the user with u's e-mail (case-insensitive).
// A non-empty name replaces the stored one.
func (s *Store) EnsureUser(ctx context.Context, u types.User) (types.User, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" {
		return types.User{}, fmt.Errorf("%w: user e-mail is required", store.ErrInvalidData)
	}

	var out types.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name) VALUES (COALESCE($1, gen_random_uuid()::text), $2, $3)
		 ON CONFLICT (email) DO UPDATE SET name = COALESCE(EXCLUDED.name, users.name)
		 RETURNING id, email, COALESCE(name, '')`,
		nullable(u.ID), email, nullable(strings.TrimSpace(u.Name)),
	).Scan(&out.ID, &out.Email, &out.Name)
	if err != nil {
		return types.User{}, fmt.Errorf("ensuring user %s: %w", email, translate(err))
	}
	return out, nil
}
