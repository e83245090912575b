package semanticscholar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultMinInterval is the default spacing between requests.
	DefaultMinInterval = time.Second

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the hard ceiling per request. Larger pages are lazily
	// assembled by the API and become very slow.
	DefaultMaxResults = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,title,abstract,year,venue,authors,citationCount,influentialCitationCount,isOpenAccess,openAccessPdf,fieldsOfStudy,tldr"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is optional; authenticated requests have higher rate limits.
	APIKey string

	// Timeout defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// MinInterval defaults to DefaultMinInterval if zero.
	MinInterval time.Duration

	// MaxResults is the per-request ceiling. Defaults to DefaultMaxResults.
	MaxResults int

	// MaxRetries is passed to the HTTP client.
	MaxRetries int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

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

// Client implements the papersources.PaperSource interface for Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new Semantic Scholar client with its own rate-limited HTTP client.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:       domain.SourceTypeSemanticScholar.DisplayName(),
		Timeout:      cfg.Timeout,
		MinInterval:  cfg.MinInterval,
		MaxRetries:   cfg.MaxRetries,
		APIKey:       cfg.APIKey,
		APIKeyHeader: apiKeyHeader,
	}))
}

// NewWithHTTPClient creates a client using the given HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries Semantic Scholar for papers matching the query.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, searchURL, &resp); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(resp.Data))
	for i := range resp.Data {
		papers = append(papers, convertToPaper(&resp.Data[i]))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   resp.Total,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return domain.SourceTypeSemanticScholar.DisplayName()
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", params.Query)
	q.Set("fields", paperFields)
	q.Set("limit", strconv.Itoa(papersources.ClampResults(params.MaxResults, 20, c.config.MaxResults)))

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// convertToPaper converts a single API paper result to a domain paper.
// Semantic Scholar tracks citations for every paper, so a missing count is 0.
func convertToPaper(result *PaperResult) *domain.Paper {
	paper := &domain.Paper{
		Title:                result.Title,
		Abstract:             result.Abstract,
		Year:                 result.Year,
		Venue:                result.Venue,
		Citations:            domain.IntPtr(0),
		InfluentialCitations: domain.IntPtr(0),
		PaperID:              result.PaperID,
		FieldsOfStudy:        result.FieldsOfStudy,
		OpenAccess:           result.IsOpenAccess,
		Source:               domain.SourceTypeSemanticScholar.DisplayName(),
	}

	if result.CitationCount != nil {
		paper.Citations = domain.IntPtr(*result.CitationCount)
	}
	if result.InfluentialCitationCount != nil {
		paper.InfluentialCitations = domain.IntPtr(*result.InfluentialCitationCount)
	}
	if result.OpenAccessPDF != nil && result.OpenAccessPDF.URL != "" {
		paper.PDFURL = result.OpenAccessPDF.URL
	}
	if result.ExternalIDs != nil {
		paper.DOI = result.ExternalIDs.DOI
		paper.ArXivID = result.ExternalIDs.ArXiv
	}
	if result.TLDR != nil {
		paper.TLDR = result.TLDR.Text
	}

	paper.Authors = make([]domain.Author, 0, len(result.Authors))
	for _, a := range result.Authors {
		name := a.Name
		if name == "" {
			name = domain.UnknownAuthorName
		}
		paper.Authors = append(paper.Authors, domain.Author{
			Name:     name,
			AuthorID: a.AuthorID,
		})
	}

	paper.Normalize()
	return paper
}
