// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/research-connector/internal/httputil"
)

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 4 << 10

// OpenAIProvider calls an OpenAI-compatible /embeddings API.
type OpenAIProvider struct {
	Client     *http.Client
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

// Embed requests one embedding for text. HTTP 429 is retried with backoff.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	model := p.Model
	if model == "" {
		model = DefaultModel
	}
	base := strings.TrimRight(p.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	payload, err := json.Marshal(openAIRequest{Model: model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("encoding embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, p.MaxRetries)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Status: http.StatusInternalServerError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ProviderError{
			Provider: p.Name(),
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(string(detail)),
		}
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ProviderError{
			Provider: p.Name(),
			Status:   http.StatusInternalServerError,
			Err:      fmt.Errorf("parsing response: %w", err),
		}
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Status: http.StatusInternalServerError, Err: ErrMissingEmbedding}
	}
	return out.Data[0].Embedding, nil
}

type openAIRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
