package core

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default CORE v3 API base URL.
	DefaultBaseURL = "https://api.core.ac.uk/v3"

	// DefaultMinInterval matches the free tier of one request every 2 seconds.
	DefaultMinInterval = 2 * time.Second

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxResults is the API's limit ceiling.
	DefaultMaxResults = 100
)

// Config holds configuration for the CORE client.
type Config struct {
	BaseURL string

	// APIKey is required; without it the source reports itself disabled.
	APIKey string

	Timeout     time.Duration
	MinInterval time.Duration
	MaxResults  int
	MaxRetries  int
	Enabled     bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MinInterval == 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.MaxResults <= 0 || c.MaxResults > DefaultMaxResults {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for CORE.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new CORE client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:      domain.SourceTypeCORE.DisplayName(),
		Timeout:     cfg.Timeout,
		MinInterval: cfg.MinInterval,
		MaxRetries:  cfg.MaxRetries,
	}))
}

// NewWithHTTPClient creates a new CORE client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries CORE for open-access works.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.IsEnabled() {
		return nil, fmt.Errorf("%s: %w", c.Name(), domain.ErrServiceUnavailable)
	}

	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, searchURL, &resp); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(resp.Results))
	for i := range resp.Results {
		papers = append(papers, workToPaper(&resp.Results[i]))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   resp.TotalHits,
		Source:         domain.SourceTypeCORE,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCORE
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return domain.SourceTypeCORE.DisplayName()
}

// IsEnabled reports whether the source is enabled and has an API key.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.config.APIKey != ""
}

// buildSearchURL constructs the search URL. CORE takes the key as a query
// parameter rather than a header.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/search/works"

	query := url.Values{}
	query.Set("q", params.Query)
	query.Set("apiKey", c.config.APIKey)
	query.Set("limit", strconv.Itoa(papersources.ClampResults(params.MaxResults, 20, c.config.MaxResults)))

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// workToPaper converts a CORE work to a domain Paper.
func workToPaper(work *Work) *domain.Paper {
	authors := make([]domain.Author, 0, len(work.Authors))
	for _, a := range work.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = domain.UnknownAuthorName
		}
		authors = append(authors, domain.Author{Name: name})
	}

	fields := make([]string, 0, len(work.Subjects)+1)
	fields = append(fields, work.Subjects...)
	if len(fields) == 0 && work.FieldOfStudy != "" {
		fields = append(fields, work.FieldOfStudy)
	}

	paper := &domain.Paper{
		Title:         papersources.CleanMarkup(work.Title),
		Abstract:      papersources.CleanMarkup(work.Abstract),
		Authors:       authors,
		Year:          work.YearPublished,
		Venue:         work.Publisher,
		PDFURL:        work.DownloadURL,
		DOI:           work.DOI,
		ArXivID:       work.ArXivID,
		PaperID:       work.ID.String(),
		FieldsOfStudy: fields,
		OpenAccess:    true,
		Source:        domain.SourceTypeCORE.DisplayName(),
	}
	paper.Normalize()
	return paper
}
