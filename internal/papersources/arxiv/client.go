package arxiv

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultMinInterval follows the arXiv API terms of use (one request every 3 seconds).
	DefaultMinInterval = 3 * time.Second

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the per-request ceiling.
	DefaultMaxResults = 100

	// venue is reported for every arXiv paper.
	venue = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full URL.
// Matches "http://arxiv.org/abs/2301.12345v1" and "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MinInterval time.Duration
	MaxResults  int
	MaxRetries  int

	// Category optionally restricts searches to one subject class (e.g. "cs.LG").
	Category string

	Enabled bool
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
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:      venue,
		Timeout:     cfg.Timeout,
		MinInterval: cfg.MinInterval,
		MaxRetries:  cfg.MaxRetries,
	}))
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for papers matching the query, ordered by relevance.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var feed Feed
	if err := c.httpClient.GetXML(ctx, searchURL, &feed); err != nil {
		return nil, err
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			papers = append(papers, paper)
		}
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   feed.TotalResults,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return domain.SourceTypeArXiv.DisplayName()
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	searchQuery := "all:" + params.Query
	if c.config.Category != "" {
		searchQuery += " AND cat:" + c.config.Category
	}

	query := url.Values{}
	query.Set("search_query", searchQuery)
	query.Set("max_results", strconv.Itoa(papersources.ClampResults(params.MaxResults, 20, c.config.MaxResults)))
	query.Set("sortBy", "relevance")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// entryToPaper converts an arXiv Atom entry to a domain Paper.
// Entries without a recognizable arXiv ID are error placeholders and are dropped.
func entryToPaper(entry *Entry) *domain.Paper {
	arxivID := extractArXivID(strings.TrimSpace(entry.ID))
	if arxivID == "" {
		return nil
	}

	var year int
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			year = t.Year()
		}
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	pdfURL := ""
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			pdfURL = link.Href
			break
		}
	}
	if pdfURL == "" {
		pdfURL = "https://arxiv.org/pdf/" + arxivID
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			categories = append(categories, cat.Term)
		}
	}

	paper := &domain.Paper{
		Title:         papersources.NormalizeWhitespace(entry.Title),
		Abstract:      papersources.NormalizeWhitespace(entry.Summary),
		Authors:       authors,
		Year:          year,
		Venue:         venue,
		PDFURL:        pdfURL,
		DOI:           strings.TrimSpace(entry.DOI),
		ArXivID:       arxivID,
		PaperID:       strings.TrimSpace(entry.ID),
		FieldsOfStudy: categories,
		OpenAccess:    true,
		Source:        domain.SourceTypeArXiv.DisplayName(),
	}
	paper.Normalize()
	return paper
}

// extractArXivID extracts the versionless arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" returns "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}
