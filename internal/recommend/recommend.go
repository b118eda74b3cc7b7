// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recommend suggests collaborators whose topic profile overlaps the
// signed-in researcher's, and drives the follow-up: drill-down, view
// logging and the contact draft.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-connector/internal/logging"
	"github.com/pdiddy/research-connector/internal/ranking"
	"github.com/pdiddy/research-connector/internal/session"
	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/internal/taxonomy"
	"github.com/pdiddy/research-connector/internal/tracing"
	"github.com/pdiddy/research-connector/pkg/types"
)

// Defaults applied when RecommendConfig leaves a field zero.
const (
	DefaultLimit      = 10
	DefaultPaperLimit = 10
)

var (
	// ErrNoIdentity is returned when an operation needs a signed-in user.
	ErrNoIdentity = errors.New("no signed-in identity")

	// ErrNoContactAddress is returned when neither the recommendation nor
	// the author detail carries an e-mail.
	ErrNoContactAddress = errors.New("no e-mail address for author")
)

const (
	subjectPrefix = "Research Collaboration Opportunity"
	bodyTemplate  = "Hi %s,\n\nI came across your work via the SDG Research Connector and would love to connect on the SDGs we share."
)

// Result is the ranked recommendation list.
type Result struct {
	Recommendations []types.ScoredAuthor `json:"recommendations" yaml:"recommendations"`
}

// AuthorContext is the drill-down for one recommended author. The two
// parts are fetched independently; each carries its own error.
type AuthorContext struct {
	Author    types.AuthorDetail   `json:"author" yaml:"author"`
	Papers    []types.PaperSummary `json:"papers" yaml:"papers"`
	AuthorErr error                `json:"-" yaml:"-"`
	PapersErr error                `json:"-" yaml:"-"`
}

// Contact is a ready-to-send e-mail draft.
type Contact struct {
	To        string `json:"to" yaml:"to"`
	Subject   string `json:"subject" yaml:"subject"`
	Body      string `json:"body" yaml:"body"`
	MailtoURL string `json:"mailto_url" yaml:"mailto_url"`
}

// Deps wires an Engine. Logger is optional.
type Deps struct {
	Store    store.RecommendationStore
	Activity store.ActivityLog
	Logger   *zap.Logger
	Config   types.RecommendConfig
}

// Engine computes and follows up on recommendations.
type Engine struct {
	store      store.RecommendationStore
	activity   store.ActivityLog
	log        *zap.Logger
	limit      int
	paperLimit int
}

// New returns an Engine.
func New(d Deps) *Engine {
	e := &Engine{
		store:      d.Store,
		activity:   d.Activity,
		log:        logging.OrNop(d.Logger),
		limit:      d.Config.Limit,
		paperLimit: d.Config.PaperLimit,
	}
	if e.limit <= 0 {
		e.limit = DefaultLimit
	}
	if e.paperLimit <= 0 {
		e.paperLimit = DefaultPaperLimit
	}
	return e
}

// RecommendationsFor returns the ranked peers of the session's e-mail
// identity. On a store failure the result is empty.
func (e *Engine) RecommendationsFor(ctx context.Context, sess *session.Session) (Result, error) {
	if !sess.HasEmail() {
		return Result{}, ErrNoIdentity
	}

	ctx, span := tracing.Tracer().Start(ctx, "recommend.RecommendationsFor")
	defer span.End()

	recs, err := e.store.RecommendAuthors(ctx, sess.Email, e.limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("loading recommendations: %w", err)
	}

	ranking.SortAuthors(recs)
	if len(recs) > e.limit {
		recs = recs[:e.limit]
	}
	if recs == nil {
		recs = []types.ScoredAuthor{}
	}
	span.SetAttributes(attribute.Int("recommend.results", len(recs)))
	return Result{Recommendations: recs}, nil
}

// AuthorContext fetches the author's detail and up to the paper limit of
// their papers, restricted to sharedTopics when non-empty. The lookups run
// concurrently and a failure of one does not affect the other.
func (e *Engine) AuthorContext(ctx context.Context, authorID string, sharedTopics []int) AuthorContext {
	ctx, span := tracing.Tracer().Start(ctx, "recommend.AuthorContext")
	defer span.End()

	var (
		out AuthorContext
		g   errgroup.Group
	)
	g.Go(func() error {
		out.Author, out.AuthorErr = e.store.AuthorDetail(ctx, authorID)
		return nil
	})
	g.Go(func() error {
		out.Papers, out.PapersErr = e.store.AuthorPapers(ctx, authorID, sharedTopics, e.paperLimit)
		return nil
	})
	_ = g.Wait()

	if out.AuthorErr != nil {
		e.log.Warn("author detail lookup failed", zap.String("author_id", authorID), zap.Error(out.AuthorErr))
	}
	if out.PapersErr != nil {
		e.log.Warn("author papers lookup failed", zap.String("author_id", authorID), zap.Error(out.PapersErr))
		out.Papers = nil
	}
	if out.Papers == nil {
		out.Papers = []types.PaperSummary{}
	}
	return out
}

// ContextFor is AuthorContext for a recommendation. The institution falls
// back to the recommendation's when the author record has none.
func (e *Engine) ContextFor(ctx context.Context, rec types.ScoredAuthor) AuthorContext {
	c := e.AuthorContext(ctx, rec.AuthorID, rec.SharedTopics)
	if c.AuthorErr == nil && c.Author.Institution == "" {
		c.Author.Institution = rec.InstitutionName
	}
	return c
}

// Select logs that the signed-in user opened rec and returns the view id.
// Nothing is written without an identity.
func (e *Engine) Select(ctx context.Context, sess *session.Session, rec types.ScoredAuthor) (string, error) {
	if sess == nil || sess.UserID == "" {
		return "", ErrNoIdentity
	}

	viewID, err := e.activity.CreateRecommendationView(ctx, rec.RecommendationID, sess.UserID)
	if err != nil {
		e.log.Warn("recommendation view log failed",
			zap.String("recommendation_id", rec.RecommendationID),
			zap.String("user_id", sess.UserID),
			zap.Error(err),
		)
		return "", fmt.Errorf("logging recommendation view: %w", err)
	}
	return viewID, nil
}

// Contact builds the e-mail draft for rec. The address is the
// recommendation's author e-mail, then the detail's. When an address is
// found and viewID is set, the view moves to email_sent; a failure there is
// logged only.
func (e *Engine) Contact(ctx context.Context, sess *session.Session, viewID string, rec types.ScoredAuthor, detail *types.AuthorDetail) (Contact, error) {
	to := strings.TrimSpace(rec.AuthorEmail)
	if to == "" && detail != nil {
		to = strings.TrimSpace(detail.Email)
	}
	if to == "" {
		e.log.Warn("no e-mail available for author", zap.String("author_id", rec.AuthorID))
		return Contact{}, ErrNoContactAddress
	}

	if viewID != "" {
		if err := e.activity.MarkEmailSent(ctx, viewID); err != nil {
			fields := []zap.Field{zap.String("view_id", viewID), zap.Error(err)}
			if sess != nil {
				fields = append(fields, zap.String("user_id", sess.UserID))
			}
			e.log.Warn("recommendation view update failed", fields...)
		}
	}

	return Draft(to, rec), nil
}

// Draft returns the contact e-mail for rec addressed to to.
func Draft(to string, rec types.ScoredAuthor) Contact {
	subject := subjectPrefix
	if len(rec.SharedTopics) > 0 {
		subject += " - " + taxonomy.Label(rec.SharedTopics)
	}
	body := fmt.Sprintf(bodyTemplate, rec.AuthorName)

	return Contact{
		To:        to,
		Subject:   subject,
		Body:      body,
		MailtoURL: "mailto:" + to + "?subject=" + escape(subject) + "&body=" + escape(body),
	}
}

// escape percent-encodes s for a mailto query, with spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
