// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes search, recommendations and the embedding proxy
// over HTTP. The caller's identity comes from the headers set by the
// fronting auth gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-connector/internal/embedding"
	"github.com/pdiddy/research-connector/internal/logging"
	"github.com/pdiddy/research-connector/internal/metrics"
	"github.com/pdiddy/research-connector/internal/recommend"
	"github.com/pdiddy/research-connector/internal/search"
	"github.com/pdiddy/research-connector/internal/session"
	"github.com/pdiddy/research-connector/pkg/types"
)

// DefaultShutdownTimeout bounds draining in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// readyTimeout bounds the store ping behind /readyz.
const readyTimeout = 2 * time.Second

// Backend is the part of the store the handlers use directly.
type Backend interface {
	Ping(ctx context.Context) error
	ListTopics(ctx context.Context) ([]types.Topic, error)
	EnsureUser(ctx context.Context, u types.User) (types.User, error)
}

// Deps wires a Server. Metrics, Logger and Tracker are optional.
type Deps struct {
	Search    *search.Service
	Recommend *recommend.Engine
	Embedder  embedding.Provider
	Backend   Backend
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Tracker   *session.Tracker
	Config    types.ServerConfig
}

// Server is the research-connector HTTP API.
type Server struct {
	search      *search.Service
	recommend   *recommend.Engine
	backend     Backend
	metrics     *metrics.Metrics
	log         *zap.Logger
	tracker     *session.Tracker
	unsubscribe func()
	handler     http.Handler
	cfg         types.ServerConfig
}

// New builds the routes and subscribes user provisioning to the tracker.
func New(d Deps) *Server {
	s := &Server{
		search:    d.Search,
		recommend: d.Recommend,
		backend:   d.Backend,
		metrics:   d.Metrics,
		log:       logging.OrNop(d.Logger),
		tracker:   d.Tracker,
		cfg:       d.Config,
	}
	if s.tracker == nil {
		s.tracker = session.NewTracker()
	}
	if s.cfg.ShutdownTimeout <= 0 {
		s.cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	s.unsubscribe = s.tracker.Subscribe(s.provisionUser)

	mux := http.NewServeMux()
	mux.Handle("POST /api/embed", &embedding.ProxyHandler{Provider: d.Embedder, Logger: s.log})
	mux.Handle("OPTIONS /api/embed", &embedding.ProxyHandler{Provider: d.Embedder, Logger: s.log})
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/topics", s.handleTopics)
	mux.HandleFunc("GET /api/recommendations", s.handleRecommendations)
	mux.HandleFunc("POST /api/recommendations/{id}/views", s.handleView)
	mux.HandleFunc("GET /api/authors/{id}/context", s.handleAuthorContext)
	mux.HandleFunc("POST /api/contact", s.handleContact)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.handler = s.withSession(s.withObservation(mux))
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close stops user provisioning.
func (s *Server) Close() {
	s.unsubscribe()
}

// Run serves on the configured address until ctx is done, then drains
// in-flight requests within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// provisionUser creates the users row for a newly seen identity. Sessions
// without an e-mail cannot be keyed and are skipped.
func (s *Server) provisionUser(ctx context.Context, sess session.Session) {
	if sess.Email == "" {
		return
	}
	_, err := s.backend.EnsureUser(ctx, types.User{ID: sess.UserID, Email: sess.Email, Name: sess.Name})
	if err != nil {
		s.log.Warn("user provisioning failed", zap.String("email", sess.Email), zap.Error(err))
		s.tracker.Forget(&sess)
	}
}
