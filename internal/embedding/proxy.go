// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// maxProxyBody caps the request body accepted by ProxyHandler.
const maxProxyBody = 1 << 20

type proxyRequest struct {
	Text string `json:"text"`
}

type proxyResponse struct {
	Embedding []float32 `json:"embedding,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ProxyHandler relays {text} to a Provider and answers {embedding}. CORS is
// open for POST and OPTIONS. Upstream provider statuses are passed through.
type ProxyHandler struct {
	Provider Provider
	Logger   *zap.Logger
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		writeProxyJSON(w, http.StatusMethodNotAllowed, proxyResponse{Error: "Method not allowed"})
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var body proxyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxProxyBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		logger.Error("embedding handler: decoding request", zap.Error(err))
		writeProxyJSON(w, http.StatusInternalServerError, proxyResponse{Error: "Unexpected server error"})
		return
	}

	text := strings.TrimSpace(body.Text)
	if text == "" {
		writeProxyJSON(w, http.StatusBadRequest, proxyResponse{Error: "Text is required"})
		return
	}

	vec, err := h.Provider.Embed(r.Context(), text)
	if err != nil {
		var pe *ProviderError
		switch {
		case errors.Is(err, ErrMissingEmbedding):
			logger.Error("embedding handler: empty provider response", zap.String("provider", h.Provider.Name()))
			writeProxyJSON(w, http.StatusInternalServerError, proxyResponse{Error: "Embedding missing from provider response"})
		case errors.As(err, &pe):
			logger.Error("embedding handler: provider error",
				zap.String("provider", pe.Provider),
				zap.Int("status", pe.Status),
				zap.String("detail", pe.Message),
				zap.Error(pe.Err))
			writeProxyJSON(w, pe.Status, proxyResponse{Error: "Failed to generate embedding"})
		default:
			logger.Error("embedding handler: unexpected error", zap.Error(err))
			writeProxyJSON(w, http.StatusInternalServerError, proxyResponse{Error: "Unexpected server error"})
		}
		return
	}
	if len(vec) == 0 {
		writeProxyJSON(w, http.StatusInternalServerError, proxyResponse{Error: "Embedding missing from provider response"})
		return
	}

	writeProxyJSON(w, http.StatusOK, proxyResponse{Embedding: vec})
}

func writeProxyJSON(w http.ResponseWriter, status int, v proxyResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
