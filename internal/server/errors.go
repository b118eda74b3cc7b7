// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/research-connector/internal/recommend"
	"github.com/pdiddy/research-connector/internal/search"
	"github.com/pdiddy/research-connector/internal/store"
)

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var unavailable *search.EmbeddingUnavailableError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, search.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, recommend.ErrNoIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, recommend.ErrNoContactAddress), errors.Is(err, store.ErrInvalidData):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status for err. Server errors are logged and
// their detail withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		s.log.Error("embedding unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "embedding unavailable"
	case status >= http.StatusInternalServerError:
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
