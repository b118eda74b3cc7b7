// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/research-connector/internal/search"
	"github.com/pdiddy/research-connector/internal/session"
	"github.com/pdiddy/research-connector/internal/taxonomy"
	"github.com/pdiddy/research-connector/pkg/types"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

type searchResponse struct {
	Results []types.ScoredPaper `json:"results"`
	Count   int                 `json:"count"`
}

type recommendationsResponse struct {
	Recommendations []types.ScoredAuthor `json:"recommendations"`
	Error           string               `json:"error,omitempty"`
}

type viewRequest struct {
	AuthorID string `json:"author_id"`
}

type viewResponse struct {
	ViewID string `json:"view_id"`
}

type authorContextResponse struct {
	Author      *types.AuthorDetail  `json:"author,omitempty"`
	Papers      []types.PaperSummary `json:"papers"`
	AuthorError string               `json:"author_error,omitempty"`
	PapersError string               `json:"papers_error,omitempty"`
}

type contactRequest struct {
	ViewID         string              `json:"view_id"`
	Recommendation types.ScoredAuthor  `json:"recommendation"`
	Author         *types.AuthorDetail `json:"author,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decoding body: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.search.Search(r.Context(), session.FromContext(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	results := out.Results
	if results == nil {
		results = []types.ScoredPaper{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.backend.ListTopics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	res, err := s.recommend.RecommendationsFor(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, status, recommendationsResponse{Recommendations: []types.ScoredAuthor{}, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: res.Recommendations})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec := types.ScoredAuthor{RecommendationID: r.PathValue("id"), AuthorID: req.AuthorID}

	viewID, err := s.recommend.Select(r.Context(), session.FromContext(r.Context()), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewResponse{ViewID: viewID})
}

func (s *Server) handleAuthorContext(w http.ResponseWriter, r *http.Request) {
	topics, err := taxonomy.ParseIDs(r.URL.Query().Get("topics"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	c := s.recommend.AuthorContext(r.Context(), r.PathValue("id"), topics)
	resp := authorContextResponse{Papers: c.Papers}
	if c.AuthorErr != nil {
		resp.AuthorError = c.AuthorErr.Error()
	} else {
		resp.Author = &c.Author
	}
	if c.PapersErr != nil {
		resp.PapersError = c.PapersErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Recommendation.AuthorID) == "" {
		s.writeError(w, r, fmt.Errorf("%w: recommendation.author_id is required", errBadRequest))
		return
	}

	draft, err := s.recommend.Contact(r.Context(), session.FromContext(r.Context()), req.ViewID, req.Recommendation, req.Author)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

