// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search answers free-text questions with the papers whose
// embeddings are closest to the question's embedding, optionally filtered
// by topic.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/pdiddy/research-connector/internal/embedding"
	"github.com/pdiddy/research-connector/internal/logging"
	"github.com/pdiddy/research-connector/internal/metrics"
	"github.com/pdiddy/research-connector/internal/ranking"
	"github.com/pdiddy/research-connector/internal/session"
	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/internal/taxonomy"
	"github.com/pdiddy/research-connector/internal/tracing"
	"github.com/pdiddy/research-connector/pkg/types"
)

// Defaults applied when SearchConfig leaves a field zero.
const (
	DefaultLimit      = 20
	MaxLimit          = 100
	DefaultLogTimeout = 5 * time.Second
)

// ErrValidation is matched by every request validation error.
var ErrValidation = errors.New("invalid search request")

var (
	// ErrEmptyQuery is returned when the trimmed query is empty.
	ErrEmptyQuery = fmt.Errorf("%w: query is empty", ErrValidation)

	// ErrInvalidTopic is returned when a filter names a topic outside the
	// taxonomy.
	ErrInvalidTopic = fmt.Errorf("%w: unknown topic", ErrValidation)
)

// EmbeddingUnavailableError reports that the query could not be embedded.
type EmbeddingUnavailableError struct {
	Err error
}

func (e *EmbeddingUnavailableError) Error() string {
	return "embedding unavailable: " + e.Err.Error()
}

func (e *EmbeddingUnavailableError) Unwrap() error { return e.Err }

// Request holds the search parameters.
type Request struct {
	Query  string `json:"query" yaml:"query"`
	Topics []int  `json:"topics,omitempty" yaml:"topics,omitempty"`
	Limit  int    `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Output holds the normalised request and its ranked results.
type Output struct {
	Request Request
	Results []types.ScoredPaper
}

// Deps wires a Service. Activity, Logger and Metrics are optional.
type Deps struct {
	Embedder  embedding.Provider
	Papers    store.PaperSearcher
	Activity  store.ActivityLog
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Config    types.SearchConfig
	Dimension int
}

// Service runs searches.
type Service struct {
	embedder   embedding.Provider
	papers     store.PaperSearcher
	activity   store.ActivityLog
	log        *zap.Logger
	metrics    *metrics.Metrics
	limit      int
	maxLimit   int
	logTimeout time.Duration
	dimension  int
}

// New returns a Service.
func New(d Deps) *Service {
	s := &Service{
		embedder:   d.Embedder,
		papers:     d.Papers,
		activity:   d.Activity,
		log:        logging.OrNop(d.Logger),
		metrics:    d.Metrics,
		limit:      d.Config.DefaultLimit,
		maxLimit:   d.Config.MaxLimit,
		logTimeout: d.Config.LogTimeout,
		dimension:  d.Dimension,
	}
	if s.maxLimit <= 0 {
		s.maxLimit = MaxLimit
	}
	if s.limit <= 0 {
		s.limit = DefaultLimit
	}
	if s.limit > s.maxLimit {
		s.limit = s.maxLimit
	}
	if s.logTimeout <= 0 {
		s.logTimeout = DefaultLogTimeout
	}
	if s.dimension <= 0 {
		s.dimension = embedding.DefaultDimension
	}
	return s
}

// Search embeds req.Query, queries the store and returns the ranked papers.
// When sess is non-nil the search is logged after the results are final; a
// logging failure never fails the search.
func (s *Service) Search(ctx context.Context, sess *session.Session, req Request) (Output, error) {
	start := time.Now()
	ctx, span := tracing.Tracer().Start(ctx, "search.Search")
	defer span.End()

	out, err := s.search(ctx, req)
	s.metrics.ObserveSearch(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Output{}, err
	}
	span.SetAttributes(
		attribute.Int("search.topics", len(out.Request.Topics)),
		attribute.Int("search.limit", out.Request.Limit),
		attribute.Int("search.results", len(out.Results)),
	)

	if sess != nil {
		s.logSearch(ctx, sess, out)
	}
	return out, nil
}

func (s *Service) search(ctx context.Context, req Request) (Output, error) {
	req, err := s.normalize(req)
	if err != nil {
		return Output{}, err
	}

	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return Output{}, &EmbeddingUnavailableError{Err: err}
	}
	if len(vec) == 0 {
		return Output{}, &EmbeddingUnavailableError{Err: embedding.ErrMissingEmbedding}
	}
	if err := embedding.CheckDimension(vec, s.dimension); err != nil {
		return Output{}, &EmbeddingUnavailableError{Err: err}
	}

	papers, err := s.papers.SearchPapers(ctx, vec, req.Topics, req.Limit)
	if err != nil {
		return Output{}, fmt.Errorf("searching papers: %w", err)
	}

	return Output{Request: req, Results: finalize(papers, req.Topics, req.Limit)}, nil
}

// normalize trims the query, validates and sorts the topics and resolves
// the limit.
func (s *Service) normalize(req Request) (Request, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, ErrEmptyQuery
	}

	topics, err := taxonomy.Normalize(req.Topics)
	if err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidTopic, err)
	}
	req.Topics = topics

	switch {
	case req.Limit <= 0:
		req.Limit = s.limit
	case req.Limit > s.maxLimit:
		req.Limit = s.maxLimit
	}
	return req, nil
}

// finalize clamps scores, drops rows outside a non-empty topic filter,
// sorts and caps, whatever the backend returned.
func finalize(papers []types.ScoredPaper, topics []int, limit int) []types.ScoredPaper {
	out := make([]types.ScoredPaper, 0, len(papers))
	for _, p := range papers {
		if len(topics) > 0 && !p.HasAnyTopic(topics) {
			continue
		}
		p.SimilarityScore = ranking.Clamp01(p.SimilarityScore)
		if p.Authors == nil {
			p.Authors = []string{}
		}
		if p.TopicIDs == nil {
			p.TopicIDs = []int{}
		}
		out = append(out, p)
	}
	ranking.SortPapers(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// logSearch appends the analytics record under its own timeout, detached
// from the caller's cancellation.
func (s *Service) logSearch(ctx context.Context, sess *session.Session, out Output) {
	if s.activity == nil {
		return
	}
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logTimeout)
	defer cancel()

	err := s.activity.LogSearch(logCtx, types.SearchQuery{
		UserID:       sess.UserID,
		QueryText:    out.Request.Query,
		TopicFilters: out.Request.Topics,
		ResultsCount: len(out.Results),
	})
	if err != nil {
		s.metrics.SearchLogFailed()
		s.log.Warn("search log write failed",
			zap.String("user_id", sess.UserID),
			zap.Int("results", len(out.Results)),
			zap.Error(err),
		)
	}
}
