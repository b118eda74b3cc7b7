// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/research-connector/internal/metrics"
	"github.com/pdiddy/research-connector/internal/recommend"
	"github.com/pdiddy/research-connector/internal/search"
	"github.com/pdiddy/research-connector/internal/session"
	"github.com/pdiddy/research-connector/internal/store"
	"github.com/pdiddy/research-connector/internal/store/sqlite"
	"github.com/pdiddy/research-connector/pkg/types"
)

const dim = 3

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vec, f.err }

type fixture struct {
	store   *sqlite.Store
	embed   *fakeEmbedder
	metrics *metrics.Metrics
	logs    *observer.ObservedLogs
	server  *Server
	http    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "research.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	emb := &fakeEmbedder{vec: []float32{1, 0, 0}}
	m := metrics.New()

	srv := New(Deps{
		Search:    search.New(search.Deps{Embedder: emb, Papers: st, Activity: st, Logger: logger, Metrics: m, Dimension: dim}),
		Recommend: recommend.New(recommend.Deps{Store: st, Activity: st, Logger: logger}),
		Embedder:  emb,
		Backend:   st,
		Metrics:   m,
		Logger:    logger,
	})
	t.Cleanup(srv.Close)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{store: st, embed: emb, metrics: m, logs: logs, server: srv, http: ts}
}

// authored creates a paper by the named author tagged with topics.
func (f *fixture) authored(t *testing.T, name, email, title string, vec []float32, topics ...int) (authorID, paperID string) {
	t.Helper()
	ctx := context.Background()
	instID, err := f.store.FindOrCreateInstitution(ctx, types.Institution{Name: "Brigham Young University"})
	require.NoError(t, err)
	authorID, err = f.store.FindOrCreateAuthor(ctx, types.Author{Name: name, Email: email, InstitutionID: instID})
	require.NoError(t, err)
	paperID, _, err = f.store.FindOrCreatePaper(ctx, types.Paper{Title: title, Embedding: vec})
	require.NoError(t, err)
	require.NoError(t, f.store.LinkAuthorPaper(ctx, authorID, paperID))
	for _, topic := range topics {
		require.NoError(t, f.store.TagPaper(ctx, paperID, topic, 0.8))
	}
	return authorID, paperID
}

// do sends a request with optional identity headers and decodes the JSON
// answer into out when out is non-nil.
func (f *fixture) do(t *testing.T, method, path, body string, sess *session.Session, out any) int {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rd)
	require.NoError(t, err)
	if sess != nil {
		req.Header.Set(session.HeaderUserID, sess.UserID)
		req.Header.Set(session.HeaderUserEmail, sess.Email)
		req.Header.Set(session.HeaderUserName, sess.Name)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

var ada = &session.Session{UserID: "u-ada", Email: "ada@byu.edu", Name: "Ada"}

// --- Search ---

func TestSearchEndpoint(t *testing.T) {
	f := newFixture(t)
	f.authored(t, "Ada", "ada@byu.edu", "Clean water", []float32{1, 0, 0}, 6)
	f.authored(t, "Grace", "grace@byu.edu", "Climate", []float32{0, 1, 0}, 13)

	var resp searchResponse
	code := f.do(t, http.MethodPost, "/api/search", `{"query":"water","topics":[6]}`, nil, &resp)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Clean water", resp.Results[0].Title)
	assert.InDelta(t, 1.0, resp.Results[0].SimilarityScore, 1e-6)
}

func TestSearchEndpointErrors(t *testing.T) {
	f := newFixture(t)

	var errResp errorResponse
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/search", `{"query":"  "}`, nil, &errResp))
	assert.Contains(t, errResp.Error, "query is empty")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/search", `{"query":"x","topics":[18]}`, nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/search", `{not json`, nil, nil))

	f.embed.err = errors.New("provider down")
	assert.Equal(t, http.StatusBadGateway, f.do(t, http.MethodPost, "/api/search", `{"query":"x"}`, nil, &errResp))
	assert.Equal(t, "embedding unavailable", errResp.Error)
}

func TestSearchEndpointEmptyResults(t *testing.T) {
	f := newFixture(t)
	var raw map[string]any
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/search", `{"query":"x"}`, nil, &raw))
	assert.Equal(t, []any{}, raw["results"])
	assert.Equal(t, 0.0, raw["count"])
}

// --- Topics and embedding proxy ---

func TestTopicsEndpoint(t *testing.T) {
	f := newFixture(t)
	var topics []types.Topic
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/topics", "", nil, &topics))
	require.Len(t, topics, types.TopicCount)
	assert.Equal(t, 1, topics[0].ID)
}

func TestEmbedEndpoint(t *testing.T) {
	f := newFixture(t)

	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/embed", `{"text":"hello"}`, nil, &resp))
	assert.Equal(t, []float32{1, 0, 0}, resp.Embedding)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodOptions, "/api/embed", "", nil, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/api/embed", "", nil, nil))
}

// --- Recommendations ---

func TestRecommendationsRequireSession(t *testing.T) {
	f := newFixture(t)
	var resp recommendationsResponse
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/recommendations", "", nil, &resp))
	assert.Empty(t, resp.Recommendations)
	assert.NotEmpty(t, resp.Error)
}

func TestRecommendationFlow(t *testing.T) {
	f := newFixture(t)
	f.authored(t, "Ada", "ada@byu.edu", "Water and climate", []float32{1, 0, 0}, 6, 13)
	graceID, _ := f.authored(t, "Grace", "grace@byu.edu", "Climate models", []float32{0, 1, 0}, 13)

	var recs recommendationsResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/recommendations", "", ada, &recs))
	require.Len(t, recs.Recommendations, 1)
	rec := recs.Recommendations[0]
	assert.Equal(t, graceID, rec.AuthorID)
	assert.Equal(t, []int{13}, rec.SharedTopics)

	var view viewResponse
	code := f.do(t, http.MethodPost, "/api/recommendations/"+rec.RecommendationID+"/views",
		`{"author_id":"`+graceID+`"}`, ada, &view)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, view.ViewID)

	var actx authorContextResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/authors/"+graceID+"/context?topics=13", "", ada, &actx))
	require.NotNil(t, actx.Author)
	assert.Equal(t, "Grace", actx.Author.Name)
	assert.Equal(t, "Brigham Young University", actx.Author.Institution)
	require.Len(t, actx.Papers, 1)
	assert.Equal(t, "Climate models", actx.Papers[0].Title)

	body, err := json.Marshal(contactRequest{ViewID: view.ViewID, Recommendation: rec})
	require.NoError(t, err)
	var draft recommend.Contact
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/contact", string(body), ada, &draft))
	assert.Equal(t, "grace@byu.edu", draft.To)
	assert.Equal(t, "Research Collaboration Opportunity - SDG 13", draft.Subject)
	assert.True(t, strings.HasPrefix(draft.MailtoURL, "mailto:grace@byu.edu?subject="))

	// A second contact on the same view leaves it in email_sent.
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/contact", string(body), ada, nil))
}

func TestViewRequiresUserID(t *testing.T) {
	f := newFixture(t)
	anonymous := &session.Session{Email: "ada@byu.edu"}
	assert.Equal(t, http.StatusUnauthorized,
		f.do(t, http.MethodPost, "/api/recommendations/r1/views", `{"author_id":"a1"}`, anonymous, nil))
}

func TestAuthorContextErrors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/authors/x/context?topics=99", "", nil, nil))

	var actx authorContextResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/authors/missing/context", "", nil, &actx))
	assert.Nil(t, actx.Author)
	assert.NotEmpty(t, actx.AuthorError)
	assert.Empty(t, actx.PapersError)
	assert.Empty(t, actx.Papers)
}

func TestContactWithoutAddress(t *testing.T) {
	f := newFixture(t)
	body := `{"recommendation":{"author_id":"a1","author_name":"Nobody"}}`
	var errResp errorResponse
	require.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPost, "/api/contact", body, ada, &errResp))
	assert.Contains(t, errResp.Error, "no e-mail")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/contact", `{}`, ada, nil))
}

func TestContactFallsBackToAuthorDetail(t *testing.T) {
	f := newFixture(t)
	body := `{"recommendation":{"author_id":"a1","author_name":"Grace","shared_sdgs":[3,13]},"author":{"id":"a1","email":"grace@byu.edu"}}`
	var draft recommend.Contact
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/contact", body, nil, &draft))
	assert.Equal(t, "grace@byu.edu", draft.To)
	assert.Equal(t, "Research Collaboration Opportunity - SDG 3, 13", draft.Subject)
}

// --- Sessions ---

func TestSessionProvisionsUserOnce(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/healthz", "", ada, nil)
	f.do(t, http.MethodGet, "/healthz", "", ada, nil)

	u, err := f.store.EnsureUser(context.Background(), types.User{Email: "ADA@byu.edu"})
	require.NoError(t, err)
	assert.Equal(t, "u-ada", u.ID)
	assert.Equal(t, "Ada", u.Name)
}

type failingBackend struct {
	Backend
	ensureErr error
	pingErr   error
	ensures   int
}

func (b *failingBackend) EnsureUser(context.Context, types.User) (types.User, error) {
	b.ensures++
	return types.User{}, b.ensureErr
}

func (b *failingBackend) Ping(context.Context) error { return b.pingErr }

func TestProvisioningFailureRetries(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	backend := &failingBackend{ensureErr: store.ErrInvalidData}
	srv := New(Deps{Backend: backend, Logger: zap.New(core)})
	defer srv.Close()

	for range 2 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(session.HeaderUserEmail, "ada@byu.edu")
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, backend.ensures, "a failed identity is observed again")
	assert.Equal(t, 2, logs.FilterMessage("user provisioning failed").Len())
}

// --- Health and observability ---

func TestHealthAndReadiness(t *testing.T) {
	backend := &failingBackend{}
	srv := New(Deps{Backend: backend})
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	backend.pingErr = errors.New("database is gone")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is gone")
}

func TestRequestsAreLoggedAndCounted(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/topics", "", nil, nil)
	f.do(t, http.MethodGet, "/nowhere", "", nil, nil)

	entries := f.logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET /api/topics", fields["route"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "unmatched", entries[1].ContextMap()["route"])

	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	buf.ReadFrom(rec.Body)
	assert.Contains(t, buf.String(), `research_connector_http_requests_total{code="200",route="GET /api/topics"} 1`)
	assert.Contains(t, buf.String(), `research_connector_http_requests_total{code="404",route="unmatched"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{search.ErrEmptyQuery, http.StatusBadRequest},
		{errBadRequest, http.StatusBadRequest},
		{recommend.ErrNoIdentity, http.StatusUnauthorized},
		{store.ErrNotFound, http.StatusNotFound},
		{recommend.ErrNoContactAddress, http.StatusUnprocessableEntity},
		{&search.EmbeddingUnavailableError{Err: errors.New("x")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

// --- Lifecycle ---

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := New(Deps{Backend: &failingBackend{}, Config: types.ServerConfig{ShutdownTimeout: time.Second}})
	defer srv.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
