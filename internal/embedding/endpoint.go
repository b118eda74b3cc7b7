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

// EndpointProvider calls a deployed embedding proxy that speaks
// {text} -> {embedding} (see ProxyHandler).
type EndpointProvider struct {
	Client     *http.Client
	URL        string
	MaxRetries int
}

// Name returns the provider identifier.
func (p *EndpointProvider) Name() string { return "endpoint" }

// Embed posts text to the proxy and returns the embedding.
func (p *EndpointProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(proxyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, p.MaxRetries)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Status: http.StatusInternalServerError, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBody*16))
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Status: http.StatusInternalServerError, Err: err}
	}

	var out proxyResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &ProviderError{Provider: p.Name(), Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &ProviderError{
			Provider: p.Name(),
			Status:   http.StatusInternalServerError,
			Err:      fmt.Errorf("parsing response: %w", decodeErr),
		}
	}
	if len(out.Embedding) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Status: http.StatusInternalServerError, Err: ErrMissingEmbedding}
	}
	return out.Embedding, nil
}
