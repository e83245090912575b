package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
	"github.com/helixir/paper-discovery-service/internal/papersources/papersourcestest"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testNow() time.Time {
	return time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
}

func newTestOrchestrator(t *testing.T, sources ...papersources.PaperSource) *discovery.Orchestrator {
	t.Helper()
	registry := papersources.NewRegistry()
	for _, s := range sources {
		registry.Register(s)
	}
	qcfg := quality.DefaultConfig()
	qcfg.Now = testNow
	scorer, err := quality.NewScorer(qcfg)
	require.NoError(t, err)
	return discovery.New(registry, scorer, discovery.Config{Now: testNow}, zerolog.Nop(), nil)
}

func defaultSources() []papersources.PaperSource {
	return []papersources.PaperSource{
		papersourcestest.New(domain.SourceTypeSemanticScholar, "Semantic Scholar", &domain.Paper{
			Title: "Deep Learning", DOI: "10.1/X", Citations: domain.IntPtr(500), Year: 2015, Venue: "NeurIPS",
		}),
		papersourcestest.New(domain.SourceTypeArXiv, "arXiv", &domain.Paper{
			Title: "Deep Learning", DOI: "10.1/x", Year: 2015, Venue: "arXiv", PDFURL: "http://p",
		}),
		papersourcestest.New(domain.SourceTypeOpenAlex, "OpenAlex", &domain.Paper{
			Title: "Unrelated Paper", Citations: domain.IntPtr(10), Year: 2023, Venue: "Workshop",
		}),
	}
}

func newTestServer(t *testing.T, sources ...papersources.PaperSource) *Server {
	t.Helper()
	if len(sources) == 0 {
		sources = defaultSources()
	}
	return NewServer(Config{}, newTestOrchestrator(t, sources...), zerolog.Nop(), nil)
}

func doRequest(t *testing.T, srv *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rr)["error"]
}

// ---------------------------------------------------------------------------
// Health and middleware
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	disabled := papersourcestest.New(domain.SourceTypeCORE, "CORE")
	disabled.Enabled = false
	sources := append(defaultSources(), disabled)
	srv := newTestServer(t, sources...)

	rr := doRequest(t, srv, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	resp := decodeBody[healthResponse](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.EnabledSources)
}

func TestCorrelationIDMiddleware_UsesExistingHeader(t *testing.T) {
	var captured string
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = observability.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(correlationIDHeader, "test-correlation-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "test-correlation-123", captured)
	assert.Equal(t, "test-correlation-123", rr.Header().Get(correlationIDHeader))
}

func TestCorrelationIDMiddleware_GeneratesIfMissing(t *testing.T) {
	var captured string
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = observability.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, rr.Header().Get(correlationIDHeader))
}

func TestRouter_SetsCorrelationHeader(t *testing.T) {
	srv := newTestServer(t)
	rr := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rr.Header().Get(correlationIDHeader))
}

func TestMetricsEndpointAndRequestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	srv := NewServer(Config{MetricsPath: "/metrics", Gatherer: reg}, newTestOrchestrator(t, defaultSources()...), zerolog.Nop(), metrics)

	rr := doRequest(t, srv, http.MethodGet, "/api/v1/sources", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/api/v1/sources", "GET", "200")))

	rr = doRequest(t, srv, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("unmatched", "GET", "404")))

	rr = doRequest(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "test_http_requests_total")
}

func TestMetricsEndpoint_DisabledWithoutMetrics(t *testing.T) {
	srv := NewServer(Config{MetricsPath: "/metrics"}, newTestOrchestrator(t, defaultSources()...), zerolog.Nop(), nil)
	rr := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestSearch_Success(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query": "deep learning",
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[searchResponse](t, rr)
	assert.NotEmpty(t, resp.SearchID)
	assert.Equal(t, resp.SearchID, resp.Metrics.SearchID)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Count)

	top := resp.Results[0]
	assert.Equal(t, "Deep Learning", top.Title)
	assert.Equal(t, []string{"Semantic Scholar", "arXiv"}, top.Sources)
	require.NotNil(t, top.QualityScore)
	assert.InDelta(t, 0.585, *top.QualityScore, 1e-9)
	assert.Nil(t, top.QualityBreakdown)

	assert.Equal(t, []string{"Semantic Scholar", "arXiv", "OpenAlex"}, resp.Metrics.SourcesUsed)
	assert.Equal(t, 3, resp.Metrics.TotalRawResults)
	assert.Equal(t, 1, resp.Metrics.DuplicatesMerged)
}

func TestSearch_Explain(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query":   "deep learning",
		"explain": true,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[searchResponse](t, rr)
	require.NotEmpty(t, resp.Results)
	for _, p := range resp.Results {
		require.NotNil(t, p.QualityBreakdown)
		assert.InDelta(t, *p.QualityScore, p.QualityBreakdown.Total, 1e-9)
	}
}

func TestSearch_AppliesCriteria(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]interface{}
		titles []string
	}{
		{"min quality", map[string]interface{}{"min_quality": 0.5}, []string{"Deep Learning"}},
		{"open access", map[string]interface{}{"open_access_only": true}, []string{"Deep Learning"}},
		{"year window", map[string]interface{}{"year_from": 2020}, []string{"Unrelated Paper"}},
		{"min citations", map[string]interface{}{"min_citations": 100}, []string{"Deep Learning"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			tc.body["query"] = "deep learning"

			rr := doRequest(t, srv, http.MethodPost, "/api/v1/search", tc.body)

			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			resp := decodeBody[searchResponse](t, rr)
			titles := make([]string, len(resp.Results))
			for i, p := range resp.Results {
				titles[i] = p.Title
			}
			assert.Equal(t, tc.titles, titles)
			assert.Equal(t, len(tc.titles), resp.Count)
			assert.Equal(t, 2, resp.Metrics.TotalResults)
		})
	}
}

func TestSearch_SourceSelection(t *testing.T) {
	sources := defaultSources()
	srv := newTestServer(t, sources...)

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query":   "deep learning",
		"sources": []string{"OpenAlex", "semantic-scholar"},
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[searchResponse](t, rr)
	assert.Equal(t, []string{"Semantic Scholar", "OpenAlex"}, resp.Metrics.SourcesUsed)
	assert.Equal(t, 0, sources[1].(*papersourcestest.Source).Calls())
}

func TestSearch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		message string
	}{
		{"invalid json", "{not json", "invalid JSON request body"},
		{"missing query", map[string]interface{}{}, "query is required"},
		{"blank query", map[string]interface{}{"query": "   "}, "query is required"},
		{"query too long", map[string]interface{}{"query": strings.Repeat("a", 1001)}, "query must be at most 1000"},
		{"limit too large", map[string]interface{}{"query": "x", "max_results_per_source": 500}, "max_results_per_source must be at most 100"},
		{"negative limit", map[string]interface{}{"query": "x", "max_results_per_source": -1}, "max_results_per_source must be at least 0"},
		{"min quality out of range", map[string]interface{}{"query": "x", "min_quality": 1.5}, "min_quality must be at most 1"},
		{"reversed years", map[string]interface{}{"query": "x", "year_from": 2024, "year_to": 2020}, "year_to must not be before year_from"},
		{"unknown source", map[string]interface{}{"query": "x", "sources": []string{"google_scholar"}}, "unsupported source: google_scholar"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			rr := doRequest(t, srv, http.MethodPost, "/api/v1/search", tc.body)

			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Contains(t, errorMessage(t, rr), tc.message)
		})
	}
}

func TestSearch_QueryParameters(t *testing.T) {
	sources := defaultSources()
	srv := newTestServer(t, sources...)

	rr := doRequest(t, srv, http.MethodGet, "/api/v1/search?q=deep+learning&sources=arxiv,%20semantic_scholar&limit=5&smart=false", nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[searchResponse](t, rr)
	assert.Equal(t, []string{"Semantic Scholar", "arXiv"}, resp.Metrics.SourcesUsed)
	require.Len(t, resp.Results, 1)

	arxiv := sources[1].(*papersourcestest.Source)
	assert.Equal(t, 5, arxiv.LastParams().MaxResults)
	assert.Equal(t, "deep learning", arxiv.LastParams().Query)
}

func TestSearch_QueryParameterErrors(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		message string
	}{
		{"missing q", "/api/v1/search", "query is required"},
		{"bad limit", "/api/v1/search?q=x&limit=abc", "limit must be an integer"},
		{"bad smart", "/api/v1/search?q=x&smart=maybe", "smart must be a boolean"},
		{"bad min quality", "/api/v1/search?q=x&min_quality=high", "min_quality must be a number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			rr := doRequest(t, srv, http.MethodGet, tc.target, nil)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tc.message, errorMessage(t, rr))
		})
	}
}

func TestSearch_AllSourcesFailStillOK(t *testing.T) {
	bad := papersourcestest.New(domain.SourceTypeArXiv, "arXiv")
	bad.SearchFunc = func(context.Context, papersources.SearchParams) (*papersources.SearchResult, error) {
		return nil, fmt.Errorf("connection refused")
	}
	srv := newTestServer(t, bad)

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/search", map[string]interface{}{"query": "x"})

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[searchResponse](t, rr)
	assert.Empty(t, resp.Results)
	assert.Contains(t, resp.Metrics.Errors, domain.ErrAllSourcesFailed.Error())
}

// ---------------------------------------------------------------------------
// Rank
// ---------------------------------------------------------------------------

func TestRank_OrdersAndFilters(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/rank", map[string]interface{}{
		"papers": []map[string]interface{}{
			{"title": "Unrelated Paper", "citations": 10, "year": 2023, "venue": "Workshop", "source": "OpenAlex"},
			{"title": "Deep Learning", "citations": 500, "year": 2015, "venue": "NeurIPS", "pdf_url": "http://p", "source": "Semantic Scholar"},
		},
		"min_score": 0.5,
		"explain":   true,
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[rankResponse](t, rr)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 1, resp.Dropped)
	assert.Equal(t, "Deep Learning", resp.Results[0].Title)
	require.NotNil(t, resp.Results[0].QualityBreakdown)
	assert.GreaterOrEqual(t, *resp.Results[0].QualityScore, 0.5)
}

func TestRank_NormalizesInput(t *testing.T) {
	srv := newTestServer(t)

	rr := doRequest(t, srv, http.MethodPost, "/api/v1/rank", map[string]interface{}{
		"papers": []map[string]interface{}{{"title": ""}},
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[rankResponse](t, rr)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, domain.UntitledTitle, resp.Results[0].Title)
	assert.Equal(t, domain.UnknownVenue, resp.Results[0].Venue)
	require.NotNil(t, resp.Results[0].QualityScore)
}

func TestRank_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		message string
	}{
		{"no papers", map[string]interface{}{}, "papers is required"},
		{"empty papers", map[string]interface{}{"papers": []interface{}{}}, "papers must be at least 1"},
		{"null paper", map[string]interface{}{"papers": []interface{}{nil}}, "is required"},
		{"bad min score", map[string]interface{}{"papers": []map[string]string{{"title": "x"}}, "min_score": 2}, "min_score must be at most 1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			rr := doRequest(t, srv, http.MethodPost, "/api/v1/rank", tc.body)

			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Contains(t, errorMessage(t, rr), tc.message)
		})
	}
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

func TestListSources(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/v1/search", map[string]interface{}{"query": "deep learning"})
	rr := doRequest(t, srv, http.MethodGet, "/api/v1/sources", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[listSourcesResponse](t, rr)
	require.Len(t, resp.Sources, 3)
	assert.Equal(t, domain.SourceTypeSemanticScholar, resp.Sources[0].Source)
	assert.Equal(t, "Semantic Scholar Agent", resp.Sources[0].Name)
	assert.True(t, resp.Sources[0].Enabled)
	assert.Equal(t, domain.AgentStatusCompleted, resp.Sources[0].Status)
	assert.Equal(t, 1, resp.Sources[0].LastSearch.ResultsCount)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestWriteDomainError_Mappings(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"validation", domain.NewValidationError("query", "must not be empty"), http.StatusBadRequest},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"rate limited", domain.NewRateLimitError("arxiv", time.Second), http.StatusTooManyRequests},
		{"service unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"no sources", domain.ErrNoSources, http.StatusServiceUnavailable},
		{"deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"cancelled", context.Canceled, http.StatusConflict},
		{"internal error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tc.err)
			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestWriteDomainError_NeverLeaksInternalDetails(t *testing.T) {
	err := fmt.Errorf("semantic scholar: %w", fmt.Errorf("dial tcp 10.0.0.7:443: connection refused"))
	rr := httptest.NewRecorder()
	writeDomainError(rr, err)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", errorMessage(t, rr))
	assert.NotContains(t, rr.Body.String(), "10.0.0.7")
}

func TestWriteDomainError_NilIsNoop(t *testing.T) {
	rr := httptest.NewRecorder()
	writeDomainError(rr, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
}
