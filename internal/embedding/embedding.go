// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding turns text into fixed-dimension vectors through a remote
// provider and serves the embedding proxy endpoint.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/research-connector/pkg/types"
)

// Defaults for the OpenAI provider.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "text-embedding-3-small"
	DefaultDimension = 1536
)

var (
	// ErrEmptyText is returned when the input is blank after trimming.
	ErrEmptyText = errors.New("text is required")

	// ErrDimensionMismatch is returned when a vector does not have the
	// deployment's dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMissingEmbedding is returned when a provider answers 2xx without a
	// vector.
	ErrMissingEmbedding = errors.New("embedding missing from provider response")
)

// Provider converts text to an embedding vector.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderError reports a failed call to the upstream provider. Status is
// the upstream HTTP status when one was received, else 500.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider returned HTTP %d", e.Provider, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// CheckDimension returns ErrDimensionMismatch unless len(vec) == d.
func CheckDimension(vec []float32, d int) error {
	if len(vec) != d {
		return fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(vec), d)
	}
	return nil
}

// New builds the provider selected by cfg.Provider. A nil client gets one
// with cfg.Timeout (30 s when unset).
func New(cfg types.EmbeddingConfig, client *http.Client) (Provider, error) {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key (embedding.api_key, OPENAI_API_KEY or .secrets/openai-api-key)")
		}
		return &OpenAIProvider{
			Client:     client,
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		}, nil
	case types.ProviderEndpoint:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("endpoint provider requires embedding.base_url")
		}
		return &EndpointProvider{Client: client, URL: cfg.BaseURL, MaxRetries: cfg.MaxRetries}, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: use openai or endpoint", cfg.Provider)
	}
}
