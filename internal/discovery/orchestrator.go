// Package discovery runs a query against several paper sources at once and
// returns one deduplicated, quality-ranked list with a per-source report.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paper-discovery-service/internal/agent"
	"github.com/helixir/paper-discovery-service/internal/dedup"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

// Orchestrator defaults.
const (
	DefaultMaxWorkers       = 6
	DefaultTimeoutPerSource = 15 * time.Second
	DefaultResultsPerSource = 20
)

// Config configures an Orchestrator.
type Config struct {
	// MaxWorkers caps how many agents run at once.
	MaxWorkers int

	// TimeoutPerSource bounds each agent. The whole search is bounded by
	// TimeoutPerSource times the number of dispatched agents.
	TimeoutPerSource time.Duration

	// ResultsPerSource is used when a request does not set a limit.
	ResultsPerSource int

	// SmartSearch is the default for requests that do not set it.
	SmartSearch bool

	// SmartSourceSelection picks sources by query topic when a request names none.
	SmartSourceSelection bool

	// DefaultSources are searched when a request names none and smart source
	// selection is off. Empty means every enabled source.
	DefaultSources []domain.SourceType

	// Policies overrides the smart-filter policy per source.
	Policies map[domain.SourceType]agent.FilterPolicy

	// Cache stores recent results. Nil disables caching.
	Cache *SearchCache

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Request describes one parallel search.
type Request struct {
	// Query is the free-text query (required).
	Query string

	// Sources restricts the search. Empty uses the configured defaults.
	Sources []domain.SourceType

	// MaxResultsPerSource is the per-agent result count. Zero uses the default.
	MaxResultsPerSource int

	// SmartSearch overrides the configured default when non-nil.
	SmartSearch *bool

	// SkipCache forces a fresh search.
	SkipCache bool
}

// SearchMetrics reports how a search went.
type SearchMetrics struct {
	SearchID         string                `json:"search_id"`
	Query            string                `json:"query"`
	TotalResults     int                   `json:"total_results"`
	TotalRawResults  int                   `json:"total_raw_results"`
	DuplicatesMerged int                   `json:"duplicates_merged"`
	DurationSeconds  float64               `json:"duration_seconds"`
	SourcesUsed      []string              `json:"sources_used"`
	Agents           []domain.AgentMetrics `json:"agents"`
	Errors           []string              `json:"errors,omitempty"`
	Cached           bool                  `json:"cached"`
}

// Result is the outcome of a parallel search.
type Result struct {
	Papers  []*domain.Paper `json:"results"`
	Metrics SearchMetrics   `json:"metrics"`
}

// AgentInfo describes a configured agent.
type AgentInfo struct {
	Name       string              `json:"name"`
	Source     domain.SourceType   `json:"source"`
	Label      string              `json:"label"`
	Enabled    bool                `json:"enabled"`
	Policy     agent.FilterPolicy  `json:"policy"`
	Status     domain.AgentStatus  `json:"status"`
	LastSearch domain.AgentMetrics `json:"last_search"`
}

// Orchestrator dispatches searches to one agent per registered source.
type Orchestrator struct {
	registry *papersources.Registry
	agents   map[domain.SourceType]*agent.SearchAgent
	scorer   *quality.Scorer
	config   Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// New creates an orchestrator with one agent for each source in registry.
func New(registry *papersources.Registry, scorer *quality.Scorer, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Orchestrator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.TimeoutPerSource <= 0 {
		cfg.TimeoutPerSource = DefaultTimeoutPerSource
	}
	if cfg.ResultsPerSource <= 0 {
		cfg.ResultsPerSource = DefaultResultsPerSource
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	agents := make(map[domain.SourceType]*agent.SearchAgent, registry.Len())
	for _, src := range registry.AllSources() {
		acfg := agent.Config{Timeout: cfg.TimeoutPerSource, Now: cfg.Now}
		if p, ok := cfg.Policies[src.SourceType()]; ok {
			acfg.Policy = &p
		}
		agents[src.SourceType()] = agent.New(src, acfg, logger, metrics)
	}

	return &Orchestrator{
		registry: registry,
		agents:   agents,
		scorer:   scorer,
		config:   cfg,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		metrics:  metrics,
	}
}

// Scorer returns the quality scorer used for ranking.
func (o *Orchestrator) Scorer() *quality.Scorer { return o.scorer }

// Agents lists the configured agents in source order.
func (o *Orchestrator) Agents() []AgentInfo {
	sources := o.registry.AllSources()
	infos := make([]AgentInfo, 0, len(sources))
	for _, src := range sources {
		a := o.agents[src.SourceType()]
		infos = append(infos, AgentInfo{
			Name:       a.Name(),
			Source:     src.SourceType(),
			Label:      src.Name(),
			Enabled:    src.IsEnabled(),
			Policy:     a.Policy(),
			Status:     a.Status(),
			LastSearch: a.LastMetrics(),
		})
	}
	return infos
}

// SearchParallel searches the given sources for query, requesting up to
// maxResultsPerSource papers from each. See Search.
func (o *Orchestrator) SearchParallel(ctx context.Context, query string, sources []domain.SourceType, maxResultsPerSource int) (*Result, error) {
	return o.Search(ctx, Request{Query: query, Sources: sources, MaxResultsPerSource: maxResultsPerSource})
}

// Search runs the request's agents concurrently, merges their results in
// source order and ranks them by quality score.
//
// Source failures and timeouts never produce an error: they appear in the
// metrics with an empty contribution. When no source is usable or every
// source fails, the result is empty and Metrics.Errors says why. An error
// is returned only for an invalid request.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if req.MaxResultsPerSource < 0 {
		return nil, domain.NewValidationError("max_results_per_source", "must be positive")
	}
	limit := req.MaxResultsPerSource
	if limit == 0 {
		limit = o.config.ResultsPerSource
	}
	smart := o.config.SmartSearch
	if req.SmartSearch != nil {
		smart = *req.SmartSearch
	}

	start := o.config.Now()
	searchID := uuid.NewString()
	ctx = observability.WithSearchID(ctx, searchID)
	logger := observability.WithSearchContext(observability.WithRequestContext(ctx, o.logger), searchID, query)

	if o.metrics != nil {
		o.metrics.RecordSearchStarted()
	}

	active := o.registry.Select(o.resolveSources(query, req.Sources))
	types := make([]domain.SourceType, len(active))
	for i, s := range active {
		types[i] = s.SourceType()
	}

	metrics := SearchMetrics{
		SearchID:    searchID,
		Query:       query,
		SourcesUsed: make([]string, 0, len(active)),
		Agents:      make([]domain.AgentMetrics, 0, len(active)),
	}
	for _, s := range active {
		metrics.SourcesUsed = append(metrics.SourcesUsed, s.Name())
	}

	cacheKey := CacheKey(query, types, limit, smart)
	if o.config.Cache != nil && !req.SkipCache && len(active) > 0 {
		if papers, cached, ok := o.config.Cache.Get(cacheKey); ok {
			cached.SearchID = searchID
			cached.Cached = true
			cached.DurationSeconds = o.config.Now().Sub(start).Seconds()
			if o.metrics != nil {
				o.metrics.RecordCacheHit()
				o.metrics.RecordSearchFinished(len(papers), cached.DurationSeconds)
			}
			logger.Info().Int("results", len(papers)).Msg("search served from cache")
			return &Result{Papers: papers, Metrics: cached}, nil
		}
		if o.metrics != nil {
			o.metrics.RecordCacheMiss()
		}
	}

	if len(active) == 0 {
		metrics.Errors = append(metrics.Errors, domain.ErrNoSources.Error())
		metrics.DurationSeconds = o.config.Now().Sub(start).Seconds()
		o.finish(logger, metrics)
		return &Result{Papers: []*domain.Paper{}, Metrics: metrics}, nil
	}

	perAgent, agentMetrics := o.dispatch(ctx, active, query, limit, smart)

	agg := dedup.NewAggregator()
	for _, papers := range perAgent {
		agg.Add(papers)
	}
	stats := agg.Stats()
	ranked := o.scorer.Rank(agg.Papers())

	completed := 0
	for _, m := range agentMetrics {
		if m.Status == domain.AgentStatusCompleted {
			completed++
		} else {
			metrics.Errors = append(metrics.Errors, fmt.Sprintf("%s: %s", m.Source, m.Error))
		}
	}
	if completed == 0 {
		metrics.Errors = append(metrics.Errors, domain.ErrAllSourcesFailed.Error())
	}

	metrics.Agents = agentMetrics
	metrics.TotalRawResults = stats.Raw
	metrics.TotalResults = len(ranked)
	metrics.DuplicatesMerged = stats.Merged
	metrics.DurationSeconds = o.config.Now().Sub(start).Seconds()

	if o.metrics != nil {
		o.metrics.RecordAggregation(stats.Raw, stats.Unique)
	}

	// Partial results are not cached so a flaky source gets another chance.
	if o.config.Cache != nil && completed == len(active) {
		o.config.Cache.Set(cacheKey, ranked, metrics)
		logger.Debug().Int("cache_entries", o.config.Cache.Len()).Msg("search cached")
	}

	o.finish(logger, metrics)
	return &Result{Papers: ranked, Metrics: metrics}, nil
}

// resolveSources returns the source types to search for a request.
func (o *Orchestrator) resolveSources(query string, requested []domain.SourceType) []domain.SourceType {
	if len(requested) > 0 {
		return requested
	}
	if o.config.SmartSourceSelection {
		enabled := o.registry.EnabledSources()
		available := make([]domain.SourceType, len(enabled))
		for i, s := range enabled {
			available[i] = s.SourceType()
		}
		if selected := SelectSources(query, available); len(selected) > 0 {
			return selected
		}
	}
	return o.config.DefaultSources
}

// dispatch runs one agent per source on a bounded pool. Slot i of both
// returned slices belongs to sources[i], whatever the completion order.
func (o *Orchestrator) dispatch(ctx context.Context, sources []papersources.PaperSource, query string, limit int, smart bool) ([][]*domain.Paper, []domain.AgentMetrics) {
	n := len(sources)
	papers := make([][]*domain.Paper, n)
	metrics := make([]domain.AgentMetrics, n)

	ctx, cancel := context.WithTimeout(ctx, o.config.TimeoutPerSource*time.Duration(n))
	defer cancel()

	var g errgroup.Group
	g.SetLimit(min(n, o.config.MaxWorkers))
	for i, src := range sources {
		a := o.agents[src.SourceType()]
		g.Go(func() error {
			papers[i], metrics[i] = a.Search(ctx, query, limit, smart)
			return nil
		})
	}
	_ = g.Wait()

	return papers, metrics
}

func (o *Orchestrator) finish(logger zerolog.Logger, m SearchMetrics) {
	if o.metrics != nil {
		o.metrics.RecordSearchFinished(m.TotalResults, m.DurationSeconds)
	}

	event := logger.Info()
	if m.TotalResults == 0 {
		event = logger.Warn().Strs("errors", m.Errors)
	}
	event.
		Strs("sources", m.SourcesUsed).
		Int("raw_results", m.TotalRawResults).
		Int("results", m.TotalResults).
		Int("duplicates_merged", m.DuplicatesMerged).
		Float64("duration_s", m.DurationSeconds).
		Msg("parallel search finished")
}
