package crossref

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
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultMinInterval is one request per second.
	DefaultMinInterval = time.Second

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxResults is the API's rows ceiling.
	DefaultMaxResults = 1000
)

// Config holds configuration for the Crossref client.
type Config struct {
	BaseURL string

	// Email is placed in the User-Agent as a mailto contact.
	Email string

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

// userAgent returns the polite-pool User-Agent, or "" to use the default.
func (c *Config) userAgent() string {
	if c.Email == "" {
		return ""
	}
	return fmt.Sprintf("%s (mailto:%s)", papersources.DefaultUserAgent, c.Email)
}

// Client implements the papersources.PaperSource interface for Crossref.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:      domain.SourceTypeCrossref.DisplayName(),
		Timeout:     cfg.Timeout,
		MinInterval: cfg.MinInterval,
		MaxRetries:  cfg.MaxRetries,
		UserAgent:   cfg.userAgent(),
	}))
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries Crossref works ordered by relevance score.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var resp WorksResponse
	if err := c.httpClient.GetJSON(ctx, searchURL, &resp); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(resp.Message.Items))
	for i := range resp.Message.Items {
		papers = append(papers, itemToPaper(&resp.Message.Items[i]))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   resp.Message.TotalResults,
		Source:         domain.SourceTypeCrossref,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossref
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return domain.SourceTypeCrossref.DisplayName()
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the /works URL with query parameters.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/works"

	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("rows", strconv.Itoa(papersources.ClampResults(params.MaxResults, 20, c.config.MaxResults)))
	query.Set("sort", "score")
	query.Set("order", "desc")
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// itemToPaper converts a Crossref work to a domain Paper.
func itemToPaper(item *Item) *domain.Paper {
	authors := make([]domain.Author, 0, len(item.Author))
	for _, a := range item.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name == "" {
			continue
		}
		author := domain.Author{Name: name, AuthorID: a.ORCID}
		if len(a.Affiliation) > 0 {
			author.Affiliation = a.Affiliation[0].Name
		}
		authors = append(authors, author)
	}

	var pdfURL string
	for _, link := range item.Link {
		if link.ContentType == "application/pdf" {
			pdfURL = link.URL
			break
		}
	}

	subjects := make([]string, 0, len(item.Subject))
	subjects = append(subjects, item.Subject...)

	paper := &domain.Paper{
		Title:         papersources.NormalizeWhitespace(first(item.Title)),
		Abstract:      papersources.CleanMarkup(item.Abstract),
		Authors:       authors,
		Year:          publicationYear(item),
		Citations:     domain.IntPtr(item.IsReferencedByCount),
		Venue:         first(item.ContainerTitle),
		PDFURL:        pdfURL,
		DOI:           item.DOI,
		PaperID:       item.DOI,
		FieldsOfStudy: subjects,
		Source:        domain.SourceTypeCrossref.DisplayName(),
	}
	paper.Normalize()
	return paper
}

// publicationYear reads the first date part of published, falling back to issued.
func publicationYear(item *Item) int {
	for _, d := range []*DateParts{item.Published, item.Issued} {
		if d != nil && len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 && d.DateParts[0][0] > 0 {
			return d.DateParts[0][0]
		}
	}
	return 0
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
