package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper discovery service.
// Metrics are organized by subsystem: searches, sources, aggregation, cache and HTTP.
type Metrics struct {
	// SearchesStarted counts parallel searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts parallel searches that returned at least one result.
	SearchesCompleted prometheus.Counter

	// SearchesEmpty counts parallel searches that returned no results
	// (no sources enabled or every source failed).
	SearchesEmpty prometheus.Counter

	// SearchDuration observes end-to-end parallel search duration in seconds.
	SearchDuration prometheus.Histogram

	// SourceSearches counts agent runs, labeled by source and terminal status.
	SourceSearches *prometheus.CounterVec

	// SourceDuration observes agent run duration in seconds, labeled by source.
	SourceDuration *prometheus.HistogramVec

	// PapersPerSource observes papers returned per agent run, labeled by source.
	PapersPerSource *prometheus.HistogramVec

	// RawPapers counts papers returned by agents before deduplication.
	RawPapers prometheus.Counter

	// UniquePapers counts papers remaining after deduplication.
	UniquePapers prometheus.Counter

	// DuplicatesMerged counts duplicate sightings folded into a first-seen paper.
	DuplicatesMerged prometheus.Counter

	// CacheHits counts searches served from the result cache.
	CacheHits prometheus.Counter

	// CacheMisses counts searches that dispatched agents.
	CacheMisses prometheus.Counter

	// HTTPRequests counts API requests, labeled by route pattern, method and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by route pattern.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil registerer uses the default Prometheus registry.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Searches
		SearchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of parallel searches started",
		}),
		SearchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of parallel searches that returned results",
		}),
		SearchesEmpty: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_empty_total",
			Help:      "Total number of parallel searches that returned no results",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of parallel searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60, 90},
		}),

		// Sources
		SourceSearches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_total",
			Help:      "Total number of source agent runs by terminal status",
		}, []string{"source", "status"}),
		SourceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of source agent runs in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}, []string{"source"}),
		PapersPerSource: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_source_search",
			Help:      "Number of papers returned per source agent run",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}, []string{"source"}),

		// Aggregation
		RawPapers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_raw_total",
			Help:      "Total number of papers returned by sources before deduplication",
		}),
		UniquePapers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_unique_total",
			Help:      "Total number of papers remaining after deduplication",
		}),
		DuplicatesMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers merged",
		}),

		// Cache
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of searches served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of searches not found in cache",
		}),

		// HTTP
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordSearchStarted records that a parallel search has started.
func (m *Metrics) RecordSearchStarted() {
	m.SearchesStarted.Inc()
}

// RecordSearchFinished records the outcome of a parallel search.
func (m *Metrics) RecordSearchFinished(resultCount int, durationSeconds float64) {
	if resultCount > 0 {
		m.SearchesCompleted.Inc()
	} else {
		m.SearchesEmpty.Inc()
	}
	m.SearchDuration.Observe(durationSeconds)
}

// RecordSourceSearch records the terminal state of one agent run.
func (m *Metrics) RecordSourceSearch(source, status string, paperCount int, durationSeconds float64) {
	m.SourceSearches.WithLabelValues(source, status).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSource.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordAggregation records raw and deduplicated paper counts.
func (m *Metrics) RecordAggregation(raw, unique int) {
	m.RawPapers.Add(float64(raw))
	m.UniquePapers.Add(float64(unique))
	if raw > unique {
		m.DuplicatesMerged.Add(float64(raw - unique))
	}
}

// RecordCacheHit records a search served from cache.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a search that missed the cache.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// RecordHTTPRequest records a completed API request.
func (m *Metrics) RecordHTTPRequest(route, method, code string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(route, method, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}
