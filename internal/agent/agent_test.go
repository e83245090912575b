package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
	"github.com/helixir/paper-discovery-service/internal/papersources/papersourcestest"
)

func fixedNow() time.Time {
	return time.Date(testYear, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func newAgent(src papersources.PaperSource, cfg Config) *SearchAgent {
	if cfg.Now == nil {
		cfg.Now = fixedNow
	}
	return New(src, cfg, zerolog.Nop(), nil)
}

func TestNew(t *testing.T) {
	src := papersourcestest.New(domain.SourceTypeArXiv, "arXiv")

	a := newAgent(src, Config{})

	assert.Equal(t, "arXiv Agent", a.Name())
	assert.Equal(t, domain.SourceTypeArXiv, a.SourceType())
	assert.Equal(t, domain.AgentStatusIdle, a.Status())
	assert.Equal(t, DefaultPolicy(domain.SourceTypeArXiv), a.Policy())
	assert.Equal(t, DefaultTimeout, a.timeout)

	last := a.LastMetrics()
	assert.Equal(t, "arXiv Agent", last.Name)
	assert.Equal(t, "arXiv", last.Source)
	assert.Equal(t, domain.AgentStatusIdle, last.Status)
}

func TestSearchAgent_Search(t *testing.T) {
	t.Run("completes and stamps provenance", func(t *testing.T) {
		src := papersourcestest.New(domain.SourceTypeOpenAlex, "OpenAlex",
			&domain.Paper{Title: "A", Year: 2020, Source: "elsewhere"},
			&domain.Paper{Title: "B", Year: 2021},
		)
		a := newAgent(src, Config{})

		papers, m := a.Search(context.Background(), "graphs", 10, false)

		require.Len(t, papers, 2)
		for _, p := range papers {
			assert.Equal(t, "OpenAlex", p.Source)
		}
		assert.Equal(t, domain.AgentStatusCompleted, m.Status)
		assert.Equal(t, 2, m.ResultsCount)
		assert.Equal(t, 2, m.RawResultsCount)
		assert.Equal(t, "OpenAlex Agent", m.Name)
		assert.Empty(t, m.Error)
		assert.Equal(t, 10, src.LastParams().MaxResults)
		assert.Equal(t, "graphs", src.LastParams().Query)
		assert.Equal(t, domain.AgentStatusCompleted, a.Status())
		assert.Equal(t, m, a.LastMetrics())
	})

	t.Run("truncates to max results", func(t *testing.T) {
		src := papersourcestest.New(domain.SourceTypeOpenAlex, "OpenAlex",
			&domain.Paper{Title: "A"}, &domain.Paper{Title: "B"}, &domain.Paper{Title: "C"},
		)
		a := newAgent(src, Config{})

		papers, m := a.Search(context.Background(), "q", 2, false)

		assert.Len(t, papers, 2)
		assert.Equal(t, 3, m.RawResultsCount)
		assert.Equal(t, 2, m.ResultsCount)
	})

	t.Run("smart search over-fetches and filters", func(t *testing.T) {
		src := papersourcestest.New(domain.SourceTypeSemanticScholar, "Semantic Scholar",
			&domain.Paper{Title: "deep learning old", Year: 2012, Citations: domain.IntPtr(9000)},
			&domain.Paper{Title: "unrelated", Year: 2026},
			&domain.Paper{Title: "deep learning new", Year: 2025},
			&domain.Paper{Title: "deep learning ignored", Year: 2023, Citations: domain.IntPtr(0)},
		)
		a := newAgent(src, Config{})

		papers, m := a.Search(context.Background(), "deep learning", 10, true)

		assert.Equal(t, 13, src.LastParams().MaxResults)
		require.Len(t, papers, 2)
		assert.Equal(t, "deep learning new", papers[0].Title)
		assert.Equal(t, "unrelated", papers[1].Title)
		assert.Greater(t, papers[0].RelevanceScore, papers[1].RelevanceScore)
		assert.Equal(t, 4, m.RawResultsCount)
		assert.Equal(t, 2, m.ResultsCount)
	})

	t.Run("custom policy", func(t *testing.T) {
		src := papersourcestest.New(domain.SourceTypeArXiv, "arXiv",
			&domain.Paper{Title: "old", Year: 2000},
		)
		a := newAgent(src, Config{Policy: &FilterPolicy{OverFetchRatio: 2}})

		papers, _ := a.Search(context.Background(), "q", 5, true)

		assert.Equal(t, 10, src.LastParams().MaxResults)
		assert.Len(t, papers, 1)
	})

	t.Run("source error marks agent failed", func(t *testing.T) {
		src := papersourcestest.New(domain.SourceTypeCrossref, "Crossref")
		src.SearchFunc = func(context.Context, papersources.SearchParams) (*papersources.SearchResult, error) {
			return nil, domain.NewExternalAPIError("Crossref", 503, "down", nil)
		}
		a := newAgent(src, Config{})

		papers, m := a.Search(context.Background(), "q", 10, false)

		assert.NotNil(t, papers)
		assert.Empty(t, papers)
		assert.Equal(t, domain.AgentStatusFailed, m.Status)
		assert.Contains(t, m.Error, "status 503")
		assert.Equal(t, domain.AgentStatusFailed, a.Status())
	})

	t.Run("slow source times out", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		src := papersourcestest.New(domain.SourceTypeCORE, "CORE")
		src.SearchFunc = func(context.Context, papersources.SearchParams) (*papersources.SearchResult, error) {
			// Ignores cancellation to prove the agent does not wait for it.
			<-release
			return &papersources.SearchResult{}, nil
		}
		a := New(src, Config{Timeout: 20 * time.Millisecond}, zerolog.Nop(), nil)

		start := time.Now()
		papers, m := a.Search(context.Background(), "q", 10, false)

		assert.Less(t, time.Since(start), time.Second)
		assert.Empty(t, papers)
		assert.Equal(t, domain.AgentStatusTimeout, m.Status)
		assert.Contains(t, m.Error, domain.ErrSourceTimeout.Error())
		assert.Equal(t, domain.AgentStatusTimeout, a.Status())
	})

	t.Run("caller cancellation marks agent failed", func(t *testing.T) {
		src := papersourcestest.New(domain.SourceTypePubMed, "PubMed")
		src.SearchFunc = func(ctx context.Context, _ papersources.SearchParams) (*papersources.SearchResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		a := newAgent(src, Config{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, m := a.Search(ctx, "q", 10, false)

		assert.Equal(t, domain.AgentStatusFailed, m.Status)
		assert.Contains(t, m.Error, context.Canceled.Error())
	})

	t.Run("nil result is empty", func(t *testing.T) {
		src := papersourcestest.New(domain.SourceTypeArXiv, "arXiv")
		src.SearchFunc = func(context.Context, papersources.SearchParams) (*papersources.SearchResult, error) {
			return nil, nil
		}
		a := newAgent(src, Config{})

		papers, m := a.Search(context.Background(), "q", 10, false)

		assert.NotNil(t, papers)
		assert.Empty(t, papers)
		assert.Equal(t, domain.AgentStatusCompleted, m.Status)
	})
}

func TestSearchAgent_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	src := papersourcestest.New(domain.SourceTypeArXiv, "arXiv", &domain.Paper{Title: "A"})
	a := New(src, Config{Now: fixedNow}, zerolog.Nop(), metrics)

	a.Search(context.Background(), "q", 5, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceSearches.WithLabelValues("arxiv", "completed")))
}

func TestSearchAgent_LogsSearchID(t *testing.T) {
	var buf bytes.Buffer
	src := papersourcestest.New(domain.SourceTypeArXiv, "arXiv", &domain.Paper{Title: "A"})
	a := New(src, Config{Now: fixedNow}, zerolog.New(&buf), nil)

	ctx := observability.WithSearchID(context.Background(), "search-7")
	a.Search(ctx, "q", 5, false)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "search-7", entry["search_id"])
		assert.Equal(t, "arxiv", entry["source"])
	}
}
