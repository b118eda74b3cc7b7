// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-connector/internal/httputil"
	"github.com/pdiddy/research-connector/internal/metrics"
	"github.com/pdiddy/research-connector/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 0
}

// fakeProvider returns a fixed vector or error.
type fakeProvider struct {
	vec   []float32
	err   error
	calls int
	texts []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	f.texts = append(f.texts, text)
	return f.vec, f.err
}

// --- OpenAI provider ---

func TestOpenAIProviderEmbed(t *testing.T) {
	var got struct {
		Model string `json:"model"`
		Input string `json:"input"`
	}
	var auth, path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer ts.Close()

	p := &OpenAIProvider{Client: ts.Client(), BaseURL: ts.URL + "/", APIKey: "sk-test"}
	vec, err := p.Embed(context.Background(), "  climate adaptation  ")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "/embeddings", path)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, "climate adaptation", got.Input)
}

func TestOpenAIProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErr    error
	}{
		{"quota", http.StatusPaymentRequired, `{"error":{"message":"quota"}}`, http.StatusPaymentRequired, nil},
		{"unauthorized", http.StatusUnauthorized, `bad key`, http.StatusUnauthorized, nil},
		{"missing data", http.StatusOK, `{"data":[]}`, http.StatusInternalServerError, ErrMissingEmbedding},
		{"malformed", http.StatusOK, `{"data":`, http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			p := &OpenAIProvider{Client: ts.Client(), BaseURL: ts.URL, APIKey: "k"}
			_, err := p.Embed(context.Background(), "text")

			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantStatus, pe.Status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIProviderRetriesRateLimit(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":[{"embedding":[1]}]}`)
	}))
	defer ts.Close()

	p := &OpenAIProvider{Client: ts.Client(), BaseURL: ts.URL, APIKey: "k"}
	vec, err := p.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, 2, calls)
}

func TestOpenAIProviderEmptyText(t *testing.T) {
	p := &OpenAIProvider{APIKey: "k"}
	_, err := p.Embed(context.Background(), " \n\t")
	assert.ErrorIs(t, err, ErrEmptyText)
}

// --- Endpoint provider ---

func TestEndpointProvider(t *testing.T) {
	ts := httptest.NewServer(&ProxyHandler{Provider: &fakeProvider{vec: []float32{0.5, 0.25}}})
	defer ts.Close()

	p := &EndpointProvider{Client: ts.Client(), URL: ts.URL}
	vec, err := p.Embed(context.Background(), "water scarcity")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

func TestEndpointProviderPropagatesStatus(t *testing.T) {
	upstream := &fakeProvider{err: &ProviderError{Provider: "openai", Status: http.StatusPaymentRequired}}
	ts := httptest.NewServer(&ProxyHandler{Provider: upstream})
	defer ts.Close()

	p := &EndpointProvider{Client: ts.Client(), URL: ts.URL}
	_, err := p.Embed(context.Background(), "text")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusPaymentRequired, pe.Status)
	assert.Equal(t, "Failed to generate embedding", pe.Message)
}

// --- Helpers ---

func TestCheckDimension(t *testing.T) {
	assert.NoError(t, CheckDimension(make([]float32, 4), 4))

	err := CheckDimension(make([]float32, 3), 4)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "got 3 values, want 4")
}

func TestNew(t *testing.T) {
	_, err := New(types.EmbeddingConfig{Provider: types.ProviderOpenAI}, nil)
	assert.ErrorContains(t, err, "API key")

	p, err := New(types.EmbeddingConfig{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = New(types.EmbeddingConfig{Provider: types.ProviderEndpoint}, nil)
	assert.ErrorContains(t, err, "base_url")

	p, err = New(types.EmbeddingConfig{Provider: types.ProviderEndpoint, BaseURL: "http://localhost/api/embed"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "endpoint", p.Name())

	_, err = New(types.EmbeddingConfig{Provider: "cohere"}, nil)
	assert.ErrorContains(t, err, "unsupported embedding provider")
}

func TestInstrument(t *testing.T) {
	m := metrics.New()
	ok := Instrument(&fakeProvider{vec: []float32{1}}, m)
	bad := Instrument(&fakeProvider{err: errors.New("boom")}, m)

	_, _ = ok.Embed(context.Background(), "a")
	_, _ = bad.Embed(context.Background(), "b")
	_, _ = bad.Embed(context.Background(), "c")

	body := scrape(t, m)
	assert.Contains(t, body, `research_connector_embedding_requests_total{outcome="ok",provider="fake"} 1`)
	assert.Contains(t, body, `research_connector_embedding_requests_total{outcome="error",provider="fake"} 2`)

	assert.Same(t, ok.(*instrumented).Provider, Instrument(ok.(*instrumented).Provider, nil))
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

// --- Proxy handler ---

func TestProxyHandlerStatusMatrix(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		provider   *fakeProvider
		wantStatus int
		wantError  string
	}{
		{"success", http.MethodPost, `{"text":"ocean"}`, &fakeProvider{vec: []float32{0.1}}, http.StatusOK, ""},
		{"wrong method", http.MethodGet, ``, &fakeProvider{}, http.StatusMethodNotAllowed, "Method not allowed"},
		{"empty text", http.MethodPost, `{"text":"   "}`, &fakeProvider{}, http.StatusBadRequest, "Text is required"},
		{"empty body", http.MethodPost, ``, &fakeProvider{}, http.StatusBadRequest, "Text is required"},
		{"malformed json", http.MethodPost, `{"text":`, &fakeProvider{}, http.StatusInternalServerError, "Unexpected server error"},
		{"upstream status", http.MethodPost, `{"text":"x"}`,
			&fakeProvider{err: &ProviderError{Provider: "openai", Status: http.StatusTooManyRequests}},
			http.StatusTooManyRequests, "Failed to generate embedding"},
		{"missing embedding", http.MethodPost, `{"text":"x"}`,
			&fakeProvider{err: &ProviderError{Provider: "openai", Status: 500, Err: ErrMissingEmbedding}},
			http.StatusInternalServerError, "Embedding missing from provider response"},
		{"empty vector", http.MethodPost, `{"text":"x"}`, &fakeProvider{}, http.StatusInternalServerError, "Embedding missing from provider response"},
		{"unexpected error", http.MethodPost, `{"text":"x"}`, &fakeProvider{err: errors.New("dial tcp")}, http.StatusInternalServerError, "Unexpected server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &ProxyHandler{Provider: tt.provider}
			req := httptest.NewRequest(tt.method, "/api/embed", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)

			var resp proxyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, []float32{0.1}, resp.Embedding)
				assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			}
			if tt.wantStatus == http.StatusMethodNotAllowed {
				assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
			}
		})
	}
}

func TestProxyHandlerPreflight(t *testing.T) {
	p := &fakeProvider{}
	rec := httptest.NewRecorder()
	(&ProxyHandler{Provider: p}).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/embed", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Zero(t, p.calls)
}

func TestProxyHandlerTrimsText(t *testing.T) {
	p := &fakeProvider{vec: []float32{1}}
	rec := httptest.NewRecorder()
	(&ProxyHandler{Provider: p}).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/embed", strings.NewReader(`{"text":"  sdg 13 \n"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"sdg 13"}, p.texts)
}
