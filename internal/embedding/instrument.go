// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"

	"github.com/pdiddy/research-connector/internal/metrics"
)

// Instrument wraps p so every call is counted in embedding_requests_total.
func Instrument(p Provider, m *metrics.Metrics) Provider {
	if m == nil {
		return p
	}
	return &instrumented{Provider: p, metrics: m}
}

type instrumented struct {
	Provider
	metrics *metrics.Metrics
}

func (i *instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := i.Provider.Embed(ctx, text)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	i.metrics.EmbeddingRequest(i.Provider.Name(), outcome)
	return vec, err
}
