// Package agent wraps a paper source with lifecycle tracking, a per-search
// timeout and optional smart filtering.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

// DefaultTimeout bounds a single agent search when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// Config configures a SearchAgent.
type Config struct {
	// Timeout bounds one search, including rate-limit waits and retries.
	Timeout time.Duration

	// Policy controls smart filtering. A zero value uses DefaultPolicy for
	// the wrapped source.
	Policy *FilterPolicy

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// SearchAgent runs searches against one paper source and records how each went.
// An agent never returns an error: failures and timeouts are reported through
// the returned AgentMetrics with an empty paper list.
type SearchAgent struct {
	name    string
	source  papersources.PaperSource
	timeout time.Duration
	policy  FilterPolicy
	now     func() time.Time
	logger  zerolog.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	status domain.AgentStatus
	last   domain.AgentMetrics
}

// New creates an agent named after its source, e.g. "arXiv Agent".
func New(source papersources.PaperSource, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *SearchAgent {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	policy := DefaultPolicy(source.SourceType())
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}

	name := source.Name() + " Agent"
	return &SearchAgent{
		name:    name,
		source:  source,
		timeout: cfg.Timeout,
		policy:  policy,
		now:     cfg.Now,
		logger:  observability.WithSourceContext(logger, string(source.SourceType()), name),
		metrics: metrics,
		status:  domain.AgentStatusIdle,
		last: domain.AgentMetrics{
			Name:   name,
			Source: source.Name(),
			Status: domain.AgentStatusIdle,
		},
	}
}

// Name returns the agent's display name.
func (a *SearchAgent) Name() string { return a.name }

// SourceType returns the type of the wrapped source.
func (a *SearchAgent) SourceType() domain.SourceType { return a.source.SourceType() }

// Policy returns the agent's smart-filter policy.
func (a *SearchAgent) Policy() FilterPolicy { return a.policy }

// Status returns the agent's current lifecycle state.
func (a *SearchAgent) Status() domain.AgentStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// LastMetrics returns the metrics of the most recent search, or an idle
// record if the agent has not searched yet.
func (a *SearchAgent) LastMetrics() domain.AgentMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

type searchOutcome struct {
	result *papersources.SearchResult
	err    error
}

// Search queries the source for up to maxResults papers. With smart enabled it
// over-fetches, then filters by year and citations and ranks by relevance
// before truncating. Each returned paper has Source set to the source label.
func (a *SearchAgent) Search(ctx context.Context, query string, maxResults int, smart bool) ([]*domain.Paper, domain.AgentMetrics) {
	start := a.now()
	a.setStatus(domain.AgentStatusSearching)

	requested := maxResults
	if smart {
		requested = OverFetch(maxResults, a.policy.OverFetchRatio)
	}

	logger := a.logger
	if searchID := observability.SearchIDFromContext(ctx); searchID != "" {
		logger = logger.With().Str("search_id", searchID).Logger()
	}
	logger.Debug().
		Str("query", query).
		Int("max_results", maxResults).
		Int("requested", requested).
		Bool("smart", smart).
		Msg("agent search started")

	searchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan searchOutcome, 1)
	go func() {
		result, err := a.source.Search(searchCtx, papersources.SearchParams{
			Query:      query,
			MaxResults: requested,
		})
		done <- searchOutcome{result: result, err: err}
	}()

	var outcome searchOutcome
	select {
	case outcome = <-done:
	case <-searchCtx.Done():
		outcome.err = searchCtx.Err()
	}

	metrics := domain.AgentMetrics{
		Name:   a.name,
		Source: a.source.Name(),
	}

	if outcome.err != nil {
		metrics.Status = domain.AgentStatusFailed
		if errors.Is(outcome.err, context.DeadlineExceeded) {
			metrics.Status = domain.AgentStatusTimeout
			metrics.Error = fmt.Sprintf("%v: no response within %s", domain.ErrSourceTimeout, a.timeout)
		} else {
			metrics.Error = outcome.err.Error()
		}
		metrics.DurationSeconds = a.now().Sub(start).Seconds()
		a.finish(metrics)

		logger.Warn().
			Err(outcome.err).
			Str("status", string(metrics.Status)).
			Float64("duration_s", metrics.DurationSeconds).
			Msg("agent search failed")
		return []*domain.Paper{}, metrics
	}

	var papers []*domain.Paper
	if outcome.result != nil {
		papers = outcome.result.Papers
	}
	raw := len(papers)
	label := a.source.Name()
	for _, p := range papers {
		p.Source = label
	}

	if smart {
		papers = SmartFilter(papers, query, a.policy, a.now().Year())
	}
	if maxResults > 0 && len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	if papers == nil {
		papers = []*domain.Paper{}
	}

	metrics.Status = domain.AgentStatusCompleted
	metrics.RawResultsCount = raw
	metrics.ResultsCount = len(papers)
	metrics.DurationSeconds = a.now().Sub(start).Seconds()
	a.finish(metrics)

	logger.Info().
		Int("raw_results", raw).
		Int("results", len(papers)).
		Float64("duration_s", metrics.DurationSeconds).
		Msg("agent search completed")

	return papers, metrics
}

func (a *SearchAgent) setStatus(status domain.AgentStatus) {
	a.mu.Lock()
	a.status = status
	a.last.Status = status
	a.mu.Unlock()
}

func (a *SearchAgent) finish(m domain.AgentMetrics) {
	a.mu.Lock()
	a.status = m.Status
	a.last = m
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.RecordSourceSearch(string(a.source.SourceType()), string(m.Status), m.ResultsCount, m.DurationSeconds)
	}
}
