package discovery

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-discovery-service/internal/agent"
	"github.com/helixir/paper-discovery-service/internal/config"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
	"github.com/helixir/paper-discovery-service/internal/papersources"
	"github.com/helixir/paper-discovery-service/internal/papersources/arxiv"
	"github.com/helixir/paper-discovery-service/internal/papersources/core"
	"github.com/helixir/paper-discovery-service/internal/papersources/crossref"
	"github.com/helixir/paper-discovery-service/internal/papersources/openalex"
	"github.com/helixir/paper-discovery-service/internal/papersources/pubmed"
	"github.com/helixir/paper-discovery-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

// NewRegistry constructs every paper source in canonical order. Sources
// disabled in configuration or missing credentials are registered but report
// IsEnabled false, so they are listed yet never searched.
func NewRegistry(cfg config.PaperSourcesConfig) *papersources.Registry {
	r := papersources.NewRegistry()

	ss := cfg.SemanticScholar
	r.Register(semanticscholar.New(semanticscholar.Config{
		BaseURL:     ss.BaseURL,
		APIKey:      ss.APIKey,
		Timeout:     ss.Timeout,
		MinInterval: ss.MinInterval,
		MaxResults:  ss.MaxResults,
		MaxRetries:  ss.MaxRetries,
		Enabled:     ss.Enabled,
	}))

	ax := cfg.ArXiv
	r.Register(arxiv.New(arxiv.Config{
		BaseURL:     ax.BaseURL,
		Timeout:     ax.Timeout,
		MinInterval: ax.MinInterval,
		MaxResults:  ax.MaxResults,
		MaxRetries:  ax.MaxRetries,
		Enabled:     ax.Enabled,
	}))

	oa := cfg.OpenAlex
	r.Register(openalex.New(openalex.Config{
		BaseURL:     oa.BaseURL,
		Email:       oa.Email,
		Timeout:     oa.Timeout,
		MinInterval: oa.MinInterval,
		MaxResults:  oa.MaxResults,
		MaxRetries:  oa.MaxRetries,
		Enabled:     oa.Enabled,
	}))

	cr := cfg.Crossref
	r.Register(crossref.New(crossref.Config{
		BaseURL:     cr.BaseURL,
		Email:       cr.Email,
		Timeout:     cr.Timeout,
		MinInterval: cr.MinInterval,
		MaxResults:  cr.MaxResults,
		MaxRetries:  cr.MaxRetries,
		Enabled:     cr.Enabled,
	}))

	co := cfg.CORE
	r.Register(core.New(core.Config{
		BaseURL:     co.BaseURL,
		APIKey:      co.APIKey,
		Timeout:     co.Timeout,
		MinInterval: co.MinInterval,
		MaxResults:  co.MaxResults,
		MaxRetries:  co.MaxRetries,
		Enabled:     co.Enabled,
	}))

	pm := cfg.PubMed
	r.Register(pubmed.New(pubmed.Config{
		BaseURL:     pm.BaseURL,
		Email:       pm.Email,
		APIKey:      pm.APIKey,
		Timeout:     pm.Timeout,
		MinInterval: pm.MinInterval,
		MaxResults:  pm.MaxResults,
		MaxRetries:  pm.MaxRetries,
		Enabled:     pm.Enabled,
	}))

	return r
}

// OrchestratorConfig translates service configuration into orchestrator settings.
func OrchestratorConfig(cfg *config.Config) (Config, error) {
	defaults := make([]domain.SourceType, 0, len(cfg.Search.DefaultSources))
	for _, s := range cfg.Search.DefaultSources {
		st, ok := domain.ParseSourceType(s)
		if !ok {
			return Config{}, fmt.Errorf("unknown default source %q: %w", s, domain.ErrInvalidInput)
		}
		defaults = append(defaults, st)
	}

	policies := make(map[domain.SourceType]agent.FilterPolicy, len(domain.DefaultSourceOrder))
	for _, st := range domain.DefaultSourceOrder {
		sc, _ := cfg.PaperSources.Get(st)
		policies[st] = agent.FilterPolicy{
			YearWindow:        sc.YearWindow,
			AdaptiveCitations: sc.AdaptiveCitations,
			OverFetchRatio:    cfg.Search.OverFetchRatio,
		}
	}

	var cache *SearchCache
	if cfg.Search.CacheTTL > 0 {
		cache = NewSearchCache(cfg.Search.CacheTTL, cfg.Search.CacheMaxEntries)
	}

	return Config{
		MaxWorkers:           cfg.Search.MaxWorkers,
		TimeoutPerSource:     cfg.Search.TimeoutPerSource,
		ResultsPerSource:     cfg.Search.ResultsPerSource,
		SmartSearch:          cfg.Search.SmartSearch,
		SmartSourceSelection: cfg.Search.SmartSourceSelection,
		DefaultSources:       defaults,
		Policies:             policies,
		Cache:                cache,
	}, nil
}

// NewFromConfig wires sources, scorer and orchestrator from service configuration.
func NewFromConfig(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*Orchestrator, error) {
	scorer, err := quality.NewScorer(cfg.ScorerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating quality scorer: %w", err)
	}
	ocfg, err := OrchestratorConfig(cfg)
	if err != nil {
		return nil, err
	}
	return New(NewRegistry(cfg.PaperSources), scorer, ocfg, logger, metrics), nil
}
