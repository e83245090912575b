package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics("test_discovery", prometheus.NewRegistry())
}

func TestNewMetrics(t *testing.T) {
	m := newTestMetrics(t)

	assert.NotNil(t, m.SearchesStarted)
	assert.NotNil(t, m.SearchesCompleted)
	assert.NotNil(t, m.SearchesEmpty)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.SourceSearches)
	assert.NotNil(t, m.SourceDuration)
	assert.NotNil(t, m.PapersPerSource)
	assert.NotNil(t, m.RawPapers)
	assert.NotNil(t, m.UniquePapers)
	assert.NotNil(t, m.DuplicatesMerged)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.CacheMisses)
	assert.NotNil(t, m.HTTPRequests)
	assert.NotNil(t, m.HTTPRequestDuration)
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("same_namespace", prometheus.NewRegistry())
		NewMetrics("same_namespace", prometheus.NewRegistry())
	})
}

func TestRecordSearchFinished(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSearchStarted()
	m.RecordSearchStarted()
	m.RecordSearchFinished(12, 1.5)
	m.RecordSearchFinished(0, 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchesStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesEmpty))

	count, err := getHistogramSampleCount(m.SearchDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestRecordSourceSearch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSourceSearch("arxiv", "completed", 10, 0.8)
	m.RecordSourceSearch("arxiv", "timeout", 0, 15)
	m.RecordSourceSearch("core", "failed", 0, 0.1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceSearches.WithLabelValues("arxiv", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceSearches.WithLabelValues("arxiv", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceSearches.WithLabelValues("core", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SourceSearches.WithLabelValues("core", "completed")))
}

func TestRecordAggregation(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordAggregation(30, 22)
	m.RecordAggregation(5, 5)

	assert.Equal(t, 35.0, testutil.ToFloat64(m.RawPapers))
	assert.Equal(t, 27.0, testutil.ToFloat64(m.UniquePapers))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.DuplicatesMerged))
}

func TestRecordCache(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordHTTPRequest("/api/v1/search", "POST", "200", 0.42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/search", "POST", "200")))
}

// getHistogramSampleCount returns the number of observations of a histogram.
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric dto.Metric
	if err := m.Write(&metric); err != nil {
		return 0, err
	}
	return metric.Histogram.GetSampleCount(), nil
}
