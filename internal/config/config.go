// Package config provides configuration management for the paper discovery service.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "DISCOVERY"

// Config holds all configuration for the paper discovery service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Search contains orchestration settings.
	Search SearchConfig `mapstructure:"search"`
	// Quality contains quality scoring settings.
	Quality QualityConfig `mapstructure:"quality"`
	// PaperSources contains paper source API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response. It must
	// leave room for a full parallel search.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// SearchConfig holds parallel search settings.
type SearchConfig struct {
	// MaxWorkers caps the number of agents running at once.
	MaxWorkers int `mapstructure:"max_workers"`
	// TimeoutPerSource is the per-agent timeout. The whole search is bounded
	// by TimeoutPerSource times the number of active agents.
	TimeoutPerSource time.Duration `mapstructure:"timeout_per_source"`
	// ResultsPerSource is the default number of papers requested per source.
	ResultsPerSource int `mapstructure:"results_per_source"`
	// OverFetchRatio multiplies the request size when smart search is on.
	OverFetchRatio float64 `mapstructure:"over_fetch_ratio"`
	// SmartSearch enables per-agent year, citation and relevance filtering.
	SmartSearch bool `mapstructure:"smart_search"`
	// SmartSourceSelection picks sources from the query topic when the
	// caller does not name any.
	SmartSourceSelection bool `mapstructure:"smart_source_selection"`
	// DefaultSources are used when the caller does not name any sources.
	DefaultSources []string `mapstructure:"default_sources"`
	// CacheTTL is how long a search result is reused. Zero disables caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// CacheMaxEntries bounds the number of cached searches.
	CacheMaxEntries int `mapstructure:"cache_max_entries"`
}

// QualityConfig holds quality scoring settings.
type QualityConfig struct {
	// Weights are the sub-score coefficients; they must sum to 1.0.
	Weights quality.Weights `mapstructure:"weights"`
	// Tier1Venues score 1.0 in the venue component.
	Tier1Venues []string `mapstructure:"tier1_venues"`
	// Tier2Venues score 0.7 in the venue component.
	Tier2Venues []string `mapstructure:"tier2_venues"`
	// TopInstitutions boost the author component.
	TopInstitutions []string `mapstructure:"top_institutions"`
	// MinScore is the default threshold applied by the discover CLI.
	MinScore float64 `mapstructure:"min_score"`
}

// PaperSourcesConfig holds configuration for all paper source APIs.
type PaperSourcesConfig struct {
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar PaperSourceConfig `mapstructure:"semantic_scholar"`
	// ArXiv contains arXiv API settings.
	ArXiv PaperSourceConfig `mapstructure:"arxiv"`
	// OpenAlex contains OpenAlex API settings.
	OpenAlex PaperSourceConfig `mapstructure:"openalex"`
	// Crossref contains Crossref API settings.
	Crossref PaperSourceConfig `mapstructure:"crossref"`
	// CORE contains CORE API settings.
	CORE PaperSourceConfig `mapstructure:"core"`
	// PubMed contains PubMed E-utilities settings.
	PubMed PaperSourceConfig `mapstructure:"pubmed"`
}

// Get returns the configuration of a source by type.
func (c *PaperSourcesConfig) Get(st domain.SourceType) (PaperSourceConfig, bool) {
	switch st {
	case domain.SourceTypeSemanticScholar:
		return c.SemanticScholar, true
	case domain.SourceTypeArXiv:
		return c.ArXiv, true
	case domain.SourceTypeOpenAlex:
		return c.OpenAlex, true
	case domain.SourceTypeCrossref:
		return c.Crossref, true
	case domain.SourceTypeCORE:
		return c.CORE, true
	case domain.SourceTypePubMed:
		return c.PubMed, true
	default:
		return PaperSourceConfig{}, false
	}
}

func (c *PaperSourcesConfig) ptr(st domain.SourceType) *PaperSourceConfig {
	switch st {
	case domain.SourceTypeSemanticScholar:
		return &c.SemanticScholar
	case domain.SourceTypeArXiv:
		return &c.ArXiv
	case domain.SourceTypeOpenAlex:
		return &c.OpenAlex
	case domain.SourceTypeCrossref:
		return &c.Crossref
	case domain.SourceTypeCORE:
		return &c.CORE
	case domain.SourceTypePubMed:
		return &c.PubMed
	default:
		return nil
	}
}

// PaperSourceConfig holds configuration for a single paper source API.
type PaperSourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. DISCOVERY_PAPER_SOURCES_CORE_API_KEY).
	APIKey string `mapstructure:"-"`
	// Email is the contact address sent to polite-pool APIs (loaded from environment variable).
	Email string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for a single HTTP request.
	Timeout time.Duration `mapstructure:"timeout"`
	// MinInterval is the minimum spacing between requests. Negative disables throttling.
	MinInterval time.Duration `mapstructure:"min_interval"`
	// MaxResults is the per-request ceiling.
	MaxResults int `mapstructure:"max_results"`
	// MaxRetries is the number of retries on 429 and 5xx responses.
	MaxRetries int `mapstructure:"max_retries"`
	// YearWindow is the smart-search lookback in years. Zero disables it.
	YearWindow int `mapstructure:"year_window"`
	// AdaptiveCitations enables the age-scaled citation floor in smart search.
	AdaptiveCitations bool `mapstructure:"adaptive_citations"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading path instead of searching
// the default locations when path is non-empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/paper-discovery-service")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets never come from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates API keys and contact emails from the environment.
// DISCOVERY_CONTACT_EMAIL applies to every source without its own email.
func loadSecrets(cfg *Config) {
	contact := os.Getenv(EnvPrefix + "_CONTACT_EMAIL")
	for _, st := range domain.DefaultSourceOrder {
		sc := cfg.PaperSources.ptr(st)
		prefix := EnvPrefix + "_PAPER_SOURCES_" + strings.ToUpper(string(st))
		sc.APIKey = os.Getenv(prefix + "_API_KEY")
		sc.Email = os.Getenv(prefix + "_EMAIL")
		if sc.Email == "" {
			sc.Email = contact
		}
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "paper_discovery")

	// Search defaults
	v.SetDefault("search.max_workers", 6)
	v.SetDefault("search.timeout_per_source", "15s")
	v.SetDefault("search.results_per_source", 20)
	v.SetDefault("search.over_fetch_ratio", 1.3)
	v.SetDefault("search.smart_search", true)
	v.SetDefault("search.smart_source_selection", false)
	v.SetDefault("search.default_sources", []string{"semantic_scholar", "arxiv", "openalex"})
	v.SetDefault("search.cache_ttl", "30m")
	v.SetDefault("search.cache_max_entries", 100)

	// Quality defaults
	w := quality.DefaultWeights()
	v.SetDefault("quality.weights.citations", w.Citations)
	v.SetDefault("quality.weights.author_reputation", w.AuthorReputation)
	v.SetDefault("quality.weights.venue_quality", w.VenueQuality)
	v.SetDefault("quality.weights.recency", w.Recency)
	v.SetDefault("quality.weights.additional_signals", w.AdditionalSignals)
	v.SetDefault("quality.tier1_venues", quality.DefaultTier1Venues)
	v.SetDefault("quality.tier2_venues", quality.DefaultTier2Venues)
	v.SetDefault("quality.top_institutions", quality.DefaultTopInstitutions)
	v.SetDefault("quality.min_score", 0.0)

	// Paper sources defaults.
	// API keys and emails are loaded exclusively from environment variables (see loadSecrets).
	setSourceDefaults(v, "semantic_scholar", "https://api.semanticscholar.org/graph/v1", "1s", 100, 5, true)
	setSourceDefaults(v, "arxiv", "https://export.arxiv.org/api", "3s", 100, 3, false)
	setSourceDefaults(v, "openalex", "https://api.openalex.org", "100ms", 200, 5, true)
	setSourceDefaults(v, "crossref", "https://api.crossref.org", "1s", 1000, 5, true)
	// CORE requires an API key; PubMed requires a contact email.
	setSourceDefaults(v, "core", "https://api.core.ac.uk/v3", "2s", 100, 10, false)
	setSourceDefaults(v, "pubmed", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils", "340ms", 200, 5, false)
}

func setSourceDefaults(v *viper.Viper, key, baseURL, minInterval string, maxResults, yearWindow int, adaptive bool) {
	prefix := "paper_sources." + key + "."
	v.SetDefault(prefix+"enabled", true)
	v.SetDefault(prefix+"base_url", baseURL)
	v.SetDefault(prefix+"timeout", "15s")
	v.SetDefault(prefix+"min_interval", minInterval)
	v.SetDefault(prefix+"max_results", maxResults)
	v.SetDefault(prefix+"max_retries", 2)
	v.SetDefault(prefix+"year_window", yearWindow)
	v.SetDefault(prefix+"adaptive_citations", adaptive)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate search config
	if c.Search.MaxWorkers < 1 {
		return fmt.Errorf("search max_workers must be at least 1, got %d", c.Search.MaxWorkers)
	}
	if c.Search.TimeoutPerSource <= 0 {
		return fmt.Errorf("search timeout_per_source must be positive")
	}
	if c.Search.ResultsPerSource < 1 {
		return fmt.Errorf("search results_per_source must be at least 1, got %d", c.Search.ResultsPerSource)
	}
	if c.Search.OverFetchRatio < 1 {
		return fmt.Errorf("search over_fetch_ratio must be at least 1, got %g", c.Search.OverFetchRatio)
	}
	if c.Search.CacheTTL < 0 || c.Search.CacheMaxEntries < 0 {
		return fmt.Errorf("search cache settings must not be negative")
	}
	for _, s := range c.Search.DefaultSources {
		if _, ok := domain.ParseSourceType(s); !ok {
			return fmt.Errorf("unknown default source: %q", s)
		}
	}

	// Validate quality config
	if err := c.Quality.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid quality weights: %w", err)
	}
	if c.Quality.MinScore < 0 || c.Quality.MinScore > 1 || math.IsNaN(c.Quality.MinScore) {
		return fmt.Errorf("quality min_score must be between 0 and 1")
	}

	// Validate paper sources
	for _, st := range domain.DefaultSourceOrder {
		sc, _ := c.PaperSources.Get(st)
		if sc.YearWindow < 0 {
			return fmt.Errorf("paper source %s: year_window must not be negative", st)
		}
		if sc.MaxResults < 0 {
			return fmt.Errorf("paper source %s: max_results must not be negative", st)
		}
	}

	return nil
}

// ScorerConfig returns the quality scorer configuration.
func (c *Config) ScorerConfig() quality.Config {
	return quality.Config{
		Weights:         c.Quality.Weights,
		Tier1Venues:     c.Quality.Tier1Venues,
		Tier2Venues:     c.Quality.Tier2Venues,
		TopInstitutions: c.Quality.TopInstitutions,
	}
}
