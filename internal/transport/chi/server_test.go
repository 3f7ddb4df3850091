package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/config"
	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/hit"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
	healthuc "github.com/kailas-cloud/retrievex/internal/usecase/health"
	"github.com/kailas-cloud/retrievex/internal/usecase/retrieve"
)

// --- Mocks ---

type mockRegistry struct {
	endpoints []source.Endpoint
	err       error
}

func (m *mockRegistry) Resolve(_ context.Context, sel source.Selector) ([]source.Endpoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	if sel.IsAll() {
		return m.endpoints, nil
	}
	out := make([]source.Endpoint, 0, len(sel.List()))
	for _, name := range sel.List() {
		found := false
		for _, ep := range m.endpoints {
			if ep.Name == name {
				out = append(out, ep)
				found = true
				break
			}
		}
		if !found {
			return nil, domain.NewUnknownSource("search-hub", name)
		}
	}
	return out, nil
}

type mockSearcher struct {
	mu    sync.Mutex
	calls []request.Request
	hits  map[string][]hit.Hit
	errs  map[string]error
}

func (m *mockSearcher) Search(_ context.Context, req request.Request) ([]hit.Hit, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if err, ok := m.errs[req.Source()]; ok {
		return nil, err
	}
	return m.hits[req.Source()], nil
}

func (m *mockSearcher) recorded() []request.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]request.Request(nil), m.calls...)
}

type mockDecomposer struct {
	subqueries []string
}

func (m *mockDecomposer) Decompose(_ context.Context, _ string) ([]string, error) {
	return m.subqueries, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Helpers ---

func testSources() config.SourcesConfig {
	return config.SourcesConfig{
		DefaultMaxDocuments:  10,
		DefaultMinConfidence: 0,
	}
}

func newTestRouter(srv *Server) http.Handler {
	r := chirouter.NewRouter()
	srv.Routes(r)
	return r
}

func newTestServer(searcher retrieve.SourceSearcher, decomposer retrieve.Decomposer) *Server {
	reg := &mockRegistry{endpoints: []source.Endpoint{
		{Name: "KB", URL: "http://kb.local/search"},
		{Name: "TICKETS", URL: "http://tickets.local/search"},
	}}
	return NewServer(
		reg, searcher, decomposer, nil,
		testSources(),
		Defaults{Timeout: time.Second},
		healthuc.New(nil, nil),
		zap.NewNop(),
	)
}

func postSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSearchResponse(t *testing.T, rec *httptest.ResponseRecorder) searchResponse {
	t.Helper()
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

// --- Tests ---

func TestHandleSearch_OK(t *testing.T) {
	searcher := &mockSearcher{
		hits: map[string][]hit.Hit{
			"KB":      {hit.New("kb doc", "KB", 0.9, nil, nil)},
			"TICKETS": {hit.New("ticket doc", "TICKETS", 0.7, nil, nil)},
		},
	}
	h := newTestRouter(newTestServer(searcher, nil))

	rec := postSearch(t, h, `{"query": "how do I rotate keys"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeSearchResponse(t, rec)
	if len(resp.Documents) != 2 {
		t.Fatalf("documents = %v", resp.Documents)
	}
	if resp.Documents[0].PageContent != "kb doc" {
		t.Fatalf("first document = %q, want the higher-confidence hit", resp.Documents[0].PageContent)
	}
	if resp.Documents[0].Metadata["source"] != "KB" {
		t.Fatalf("metadata = %v", resp.Documents[0].Metadata)
	}
	if resp.Grading {
		t.Fatal("grading must default to off")
	}
}

func TestHandleSearch_BadRequest(t *testing.T) {
	h := newTestRouter(newTestServer(&mockSearcher{}, nil))

	for name, body := range map[string]string{
		"invalid json":  `{`,
		"missing query": `{"query": "  "}`,
		"bad threshold": `{"query": "q", "services": [{"service": "KB", "confidence_threshold": 1.5}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := postSearch(t, h, body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleSearch_UnknownSource(t *testing.T) {
	h := newTestRouter(newTestServer(&mockSearcher{}, nil))

	rec := postSearch(t, h, `{"query": "q", "services": [{"service": "GHOST"}]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var errResp errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Code != "unknown_source" {
		t.Fatalf("code = %q", errResp.Code)
	}
}

func TestHandleSearch_AllSourcesFailed(t *testing.T) {
	searcher := &mockSearcher{
		errs: map[string]error{
			"KB":      domain.ErrSourceUnavailable,
			"TICKETS": domain.ErrSourceUnavailable,
		},
	}
	h := newTestRouter(newTestServer(searcher, nil))

	rec := postSearch(t, h, `{"query": "q"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var errResp errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Code != "sources_unavailable" {
		t.Fatalf("code = %q", errResp.Code)
	}
}

func TestHandleSearch_PartialFailureWarns(t *testing.T) {
	searcher := &mockSearcher{
		hits: map[string][]hit.Hit{"KB": {hit.New("kb doc", "KB", 0.9, nil, nil)}},
		errs: map[string]error{"TICKETS": domain.ErrSourceUnavailable},
	}
	h := newTestRouter(newTestServer(searcher, nil))

	rec := postSearch(t, h, `{"query": "q"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeSearchResponse(t, rec)
	if len(resp.Documents) != 1 || len(resp.Warnings) != 1 {
		t.Fatalf("documents = %v, warnings = %v", resp.Documents, resp.Warnings)
	}
	if resp.Warnings[0].Source != "TICKETS" {
		t.Fatalf("warning = %+v", resp.Warnings[0])
	}
}

func TestHandleSearch_ServiceOverrides(t *testing.T) {
	searcher := &mockSearcher{
		hits: map[string][]hit.Hit{
			"KB": {
				hit.New("high", "KB", 0.95, nil, nil),
				hit.New("low", "KB", 0.5, nil, nil),
			},
		},
	}
	h := newTestRouter(newTestServer(searcher, nil))

	rec := postSearch(t, h,
		`{"query": "q", "services": [{"service": "KB", "max_documents": 1, "confidence_threshold": 0.9}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeSearchResponse(t, rec)
	if len(resp.Documents) != 1 || resp.Documents[0].PageContent != "high" {
		t.Fatalf("documents = %v", resp.Documents)
	}

	calls := searcher.recorded()
	if len(calls) != 1 {
		t.Fatalf("expected only the selected source to be queried, got %d calls", len(calls))
	}
	if calls[0].MinConfidence() != 0.9 || calls[0].MaxDocuments() != 1 {
		t.Fatalf("effective values = %v/%d", calls[0].MinConfidence(), calls[0].MaxDocuments())
	}
}

func TestHandleSearch_DecompositionForcesGrading(t *testing.T) {
	searcher := &mockSearcher{
		hits: map[string][]hit.Hit{"KB": {hit.New("kb doc", "KB", 0.9, nil, nil)}},
	}
	decomposer := &mockDecomposer{subqueries: []string{"part one", "part two"}}
	h := newTestRouter(newTestServer(searcher, decomposer))

	rec := postSearch(t, h, `{"query": "q", "decomposition": true, "services": [{"service": "KB"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeSearchResponse(t, rec)
	if !resp.Grading {
		t.Fatal("decomposition must force the grading flag in the response")
	}
	for _, call := range searcher.recorded() {
		if !call.Grading() {
			t.Fatal("dispatched request missing forced grading flag")
		}
	}
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newTestServer(&mockSearcher{}, nil)
		rec := httptest.NewRecorder()
		newTestRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("degraded", func(t *testing.T) {
		srv := NewServer(
			&mockRegistry{}, &mockSearcher{}, nil, nil,
			testSources(), Defaults{Timeout: time.Second},
			healthuc.New(&mockPinger{err: context.DeadlineExceeded}, nil),
			zap.NewNop(),
		)
		rec := httptest.NewRecorder()
		newTestRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestBearerAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mw := BearerAuthMiddleware([]string{"valid-key"})(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/search", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/search", nil)
		req.Header.Set("Authorization", "Bearer valid-key")
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("health exempt", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		open := BearerAuthMiddleware(nil)(next)
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}
