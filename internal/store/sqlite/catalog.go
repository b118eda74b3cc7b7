// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sqlite

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/pkg/types"
)

// FindOrCreateInstitution resolves an institution by its trimmed name.
func (s *Store) FindOrCreateInstitution(ctx context.Context, inst types.Institution) (string, error) {
	name := strings.TrimSpace(inst.Name)
	if name == "" {
		return "", fmt.Errorf("%w: institution name is required", store.ErrInvalidData)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO institutions (id, name, country, type, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		newID(), name, nullable(inst.Country), nullable(inst.Category), s.timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting institution %q: %w", name, translate(err))
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM institutions WHERE name = ?`, name).Scan(&id); err != nil {
		return "", fmt.Errorf("fetching institution %q: %w", name, translate(err))
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
	inst := nullable(a.InstitutionID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authors (id, name, email, institution_id, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		newID(), name, nullable(strings.TrimSpace(a.Email)), inst, s.timestamp(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting author %q: %w", name, translate(err))
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM authors WHERE name = ? AND institution_id IS ?`, name, inst,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("fetching author %q: %w", name, translate(err))
	}
	return id, nil
}

// FindOrCreatePaper resolves a paper by its trimmed title.
func (s *Store) FindOrCreatePaper(ctx context.Context, p types.Paper) (string, bool, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return "", false, fmt.Errorf("%w: paper title is required", store.ErrInvalidData)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (id, title, abstract, embedding, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(title) DO NOTHING`,
		newID(), title, nullable(strings.TrimSpace(p.Abstract)), encodeVector(p.Embedding), s.timestamp(),
	)
	if err != nil {
		return "", false, fmt.Errorf("inserting paper %q: %w", title, translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("inserting paper %q: %w", title, err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM papers WHERE title = ?`, title).Scan(&id); err != nil {
		return "", false, fmt.Errorf("fetching paper %q: %w", title, translate(err))
	}
	return id, n == 1, nil
}

// LinkAuthorPaper records authorship at the next free author position.
func (s *Store) LinkAuthorPaper(ctx context.Context, authorID, paperID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO author_papers (author_id, paper_id, author_order)
		 SELECT ?, ?, COALESCE(MAX(author_order), 0) + 1 FROM author_papers WHERE paper_id = ?
		 ON CONFLICT(author_id, paper_id) DO NOTHING`,
		authorID, paperID, paperID,
	)
	if err != nil {
		return fmt.Errorf("linking author %s to paper %s: %w", authorID, paperID, translate(err))
	}
	return tx.Commit()
}

// TagPaper upserts the confidence of a topic tag.
func (s *Store) TagPaper(ctx context.Context, paperID string, topicID int, confidence float64) error {
	if !types.ValidTopicID(topicID) {
		return fmt.Errorf("%w: topic %d", store.ErrInvalidData, topicID)
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", store.ErrInvalidData, confidence)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO paper_sdgs (paper_id, sdg_id, confidence_score) VALUES (?, ?, ?)
		 ON CONFLICT(paper_id, sdg_id) DO UPDATE SET confidence_score = excluded.confidence_score`,
		paperID, topicID, confidence,
	)
	if err != nil {
		return fmt.Errorf("tagging paper %s with topic %d: %w", paperID, topicID, translate(err))
	}
	return nil
}

// SeedTopics upserts the taxonomy in one transaction.
func (s *Store) SeedTopics(ctx context.Context, topics []types.Topic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sdgs (id, name, description, color) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, description = excluded.description, color = excluded.color`)
	if err != nil {
		return fmt.Errorf("preparing topic upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range topics {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Name, t.Description, t.Color); err != nil {
			return fmt.Errorf("seeding topic %d: %w", t.ID, translate(err))
		}
	}
	return tx.Commit()
}

// ListTopics returns the taxonomy ordered by ID.
func (s *Store) ListTopics(ctx context.Context) ([]types.Topic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), COALESCE(color, '') FROM sdgs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	var topics []types.Topic
	for rows.Next() {
		var t types.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Color); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// EnsureUser gets or creates the user with u's e-mail (case-insensitive).
// A non-empty name replaces the stored one.
func (s *Store) EnsureUser(ctx context.Context, u types.User) (types.User, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" {
		return types.User{}, fmt.Errorf("%w: user e-mail is required", store.ErrInvalidData)
	}
	id := u.ID
	if id == "" {
		id = newID()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			name = CASE WHEN excluded.name IS NOT NULL THEN excluded.name ELSE users.name END`,
		id, email, nullable(strings.TrimSpace(u.Name)), s.timestamp(),
	)
	if err != nil {
		return types.User{}, fmt.Errorf("ensuring user %s: %w", email, translate(err))
	}

	var out types.User
	err = s.db.QueryRowContext(ctx,
		`SELECT id, email, COALESCE(name, '') FROM users WHERE email = ?`, email,
	).Scan(&out.ID, &out.Email, &out.Name)
	if err != nil {
		return types.User{}, fmt.Errorf("fetching user %s: %w", email, translate(err))
	}
	return out, nil
}
