// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordings(t *testing.T) {
	m := New()

	m.ObserveHTTP("POST /api/search", 200, 15*time.Millisecond)
	m.ObserveHTTP("POST /api/search", 200, 15*time.Millisecond)
	m.SearchLogFailed()
	m.EmbeddingRequest("openai", "ok")
	m.EmbeddingRequest("openai", "error")
	m.EmbeddingRequest("openai", "ok")
	m.IngestRow("imported")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST /api/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchLogFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.embeddingRequests.WithLabelValues("openai", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestRows.WithLabelValues("imported")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET /healthz", 200, time.Millisecond)
		m.ObserveSearch(time.Second)
		m.SearchLogFailed()
		m.EmbeddingRequest("openai", "ok")
		m.IngestRow("skipped")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.IngestRow("blank")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `research_connector_ingest_rows_total{outcome="blank"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
