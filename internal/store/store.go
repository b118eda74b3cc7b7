// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store defines the catalog, vector search and activity-log
// contracts implemented by the postgres and sqlite backends.
package store

import (
	"context"
	"errors"

	"github.com/pdiddy/research-connector/pkg/types"
)

// Errors shared by all backends. Backend-specific errors are translated
// into these so callers can match with errors.Is.
var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a write violates a unique constraint
	// that get-or-create does not absorb.
	ErrDuplicate = errors.New("duplicate key violation")

	// ErrInvalidData is returned when a value fails validation before or
	// during a write (empty natural key, confidence outside [0,1]).
	ErrInvalidData = errors.New("invalid data")
)

// PaperSearcher runs cosine nearest-neighbour queries over paper embeddings.
type PaperSearcher interface {
	// SearchPapers returns up to limit papers closest to embedding. When
	// topics is non-empty only papers tagged with at least one of them
	// qualify. Results are ordered by score descending, then paper ID.
	SearchPapers(ctx context.Context, embedding []float32, topics []int, limit int) ([]types.ScoredPaper, error)
}

// RecommendationStore computes peer recommendations and serves drill-downs.
type RecommendationStore interface {
	// RecommendAuthors scores every author not owned by email against the
	// topic profile of email's authored papers, persists the top limit as
	// recommendation rows and returns them.
	RecommendAuthors(ctx context.Context, email string, limit int) ([]types.ScoredAuthor, error)

	// AuthorDetail returns the author with the institution name.
	AuthorDetail(ctx context.Context, authorID string) (types.AuthorDetail, error)

	// AuthorPapers returns up to limit of the author's papers. When topics
	// is non-empty only papers tagged with one of them are returned.
	AuthorPapers(ctx context.Context, authorID string, topics []int, limit int) ([]types.PaperSummary, error)
}

// ActivityLog records analytics and recommendation follow-through.
type ActivityLog interface {
	// LogSearch appends a search record.
	LogSearch(ctx context.Context, q types.SearchQuery) error

	// CreateRecommendationView records a viewed recommendation and returns
	// the view ID.
	CreateRecommendationView(ctx context.Context, recommendationID, userID string) (string, error)

	// MarkEmailSent moves a view from viewed to email_sent. A view already
	// in email_sent is left unchanged; an unknown view is ErrNotFound.
	MarkEmailSent(ctx context.Context, viewID string) error
}

// Catalog holds papers, authors, institutions, topics and users. The
// FindOrCreate operations are idempotent on the entity's natural key.
type Catalog interface {
	// FindOrCreateInstitution resolves an institution by name.
	FindOrCreateInstitution(ctx context.Context, inst types.Institution) (string, error)

	// FindOrCreateAuthor resolves an author by (name, institution).
	FindOrCreateAuthor(ctx context.Context, a types.Author) (string, error)

	// FindOrCreatePaper resolves a paper by title. created reports whether
	// this call inserted it; an existing paper keeps its stored embedding.
	FindOrCreatePaper(ctx context.Context, p types.Paper) (id string, created bool, err error)

	// LinkAuthorPaper records authorship. A new link takes the next author
	// position on the paper; an existing link is left unchanged.
	LinkAuthorPaper(ctx context.Context, authorID, paperID string) error

	// TagPaper upserts a topic tag with confidence in [0,1].
	TagPaper(ctx context.Context, paperID string, topicID int, confidence float64) error

	// SeedTopics upserts the taxonomy.
	SeedTopics(ctx context.Context, topics []types.Topic) error

	// ListTopics returns the taxonomy ordered by ID.
	ListTopics(ctx context.Context) ([]types.Topic, error)

	// EnsureUser gets or creates the user keyed by e-mail and returns the
	// stored record.
	EnsureUser(ctx context.Context, u types.User) (types.User, error)
}

// Store is a complete backend.
type Store interface {
	PaperSearcher
	RecommendationStore
	ActivityLog
	Catalog

	// Migrate creates the schema and seeds the topic taxonomy.
	Migrate(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	Close() error
}
