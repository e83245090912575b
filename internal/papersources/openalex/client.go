package openalex

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultMinInterval keeps within the polite pool's 10 requests per second.
	DefaultMinInterval = 100 * time.Millisecond

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxResults is the API's per_page ceiling.
	DefaultMaxResults = 200

	// maxConcepts bounds the fields of study taken from the concept list.
	maxConcepts = 5

	doiPrefix = "https://doi.org/"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	BaseURL string

	// Email is sent as mailto to join the polite pool.
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

// Client implements the papersources.PaperSource interface for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:      domain.SourceTypeOpenAlex.DisplayName(),
		Timeout:     cfg.Timeout,
		MinInterval: cfg.MinInterval,
		MaxRetries:  cfg.MaxRetries,
	}))
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries OpenAlex for journal articles, most cited first.
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

	limit := papersources.ClampResults(params.MaxResults, 20, c.config.MaxResults)
	papers := make([]*domain.Paper, 0, len(resp.Results))
	for i := range resp.Results {
		if len(papers) == limit {
			break
		}
		papers = append(papers, workToPaper(&resp.Results[i]))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   resp.Meta.Count,
		Source:         domain.SourceTypeOpenAlex,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return domain.SourceTypeOpenAlex.DisplayName()
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/works"

	query := url.Values{}
	query.Set("search", params.Query)
	query.Set("per_page", strconv.Itoa(papersources.ClampResults(params.MaxResults, 20, c.config.MaxResults)))
	query.Set("filter", "type:article")
	query.Set("sort", "cited_by_count:desc")

	// Polite pool
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// workToPaper converts an OpenAlex Work to a domain Paper.
func workToPaper(work *Work) *domain.Paper {
	authors := make([]domain.Author, 0, len(work.Authorships))
	for _, authorship := range work.Authorships {
		author := domain.Author{
			Name:     strings.TrimSpace(authorship.Author.DisplayName),
			AuthorID: authorship.Author.ID,
		}
		if author.Name == "" {
			author.Name = domain.UnknownAuthorName
		}
		if len(authorship.Institutions) > 0 {
			author.Affiliation = authorship.Institutions[0].DisplayName
		}
		authors = append(authors, author)
	}

	title := work.Title
	if title == "" {
		title = work.DisplayName
	}

	var venue string
	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		venue = work.PrimaryLocation.Source.DisplayName
	}

	// A PDF link is only trusted for open-access works.
	var pdfURL string
	isOA := work.OpenAccess != nil && work.OpenAccess.IsOA
	if isOA {
		if work.PrimaryLocation != nil && work.PrimaryLocation.PDFURL != "" {
			pdfURL = work.PrimaryLocation.PDFURL
		} else {
			pdfURL = work.OpenAccess.OAURL
		}
	}

	fields := make([]string, 0, maxConcepts)
	for _, concept := range work.Concepts {
		if len(fields) == maxConcepts {
			break
		}
		if concept.DisplayName != "" {
			fields = append(fields, concept.DisplayName)
		}
	}

	paper := &domain.Paper{
		Title:         title,
		Abstract:      reconstructAbstract(work.AbstractInvertedIndex),
		Authors:       authors,
		Year:          work.PublicationYear,
		Citations:     domain.IntPtr(work.CitedByCount),
		Venue:         venue,
		PDFURL:        pdfURL,
		DOI:           normalizeDOI(work.DOI),
		PaperID:       work.ID,
		FieldsOfStudy: fields,
		OpenAccess:    isOA,
		Source:        domain.SourceTypeOpenAlex.DisplayName(),
	}
	paper.Normalize()
	return paper
}

// normalizeDOI strips the resolver prefix from DOIs.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, doiPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	return strings.TrimSpace(doi)
}

// reconstructAbstract rebuilds abstract text from OpenAlex's inverted index,
// which maps each word to the positions where it occurs.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	const maxAbstractWords = 100_000
	total := 0
	for _, positions := range invertedIndex {
		total += len(positions)
	}
	if total > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, total)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	var builder strings.Builder
	builder.Grow(total * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}
	return builder.String()
}
