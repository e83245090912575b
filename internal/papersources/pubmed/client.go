package pubmed

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
	// DefaultBaseURL is the default E-utilities base URL.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultMinInterval keeps within NCBI's 3 requests per second without a key.
	DefaultMinInterval = 340 * time.Millisecond

	// KeyedMinInterval applies when an API key raises the limit to 10 per second.
	KeyedMinInterval = 100 * time.Millisecond

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxResults is the per-request ceiling.
	DefaultMaxResults = 200

	// toolName identifies this client to NCBI.
	toolName = "paper-discovery-service"

	articleURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"
)

// fieldsOfStudy is reported for every PubMed record.
var fieldsOfStudy = []string{"Biomedical"}

// Config holds configuration for the PubMed client.
type Config struct {
	BaseURL string

	// Email is required by NCBI usage policy.
	Email string

	// APIKey is optional and raises the request rate.
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
		if c.APIKey != "" {
			c.MinInterval = KeyedMinInterval
		}
	}
	if c.MaxResults <= 0 || c.MaxResults > DefaultMaxResults {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:      domain.SourceTypePubMed.DisplayName(),
		Timeout:     cfg.Timeout,
		MinInterval: cfg.MinInterval,
		MaxRetries:  cfg.MaxRetries,
	}))
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search resolves the query to PMIDs with esearch and fetches the records with
// efetch. Both requests share the client's rate limiter.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.IsEnabled() {
		return nil, fmt.Errorf("%s: %w", c.Name(), domain.ErrServiceUnavailable)
	}

	start := time.Now()
	empty := func(total int) *papersources.SearchResult {
		return &papersources.SearchResult{
			Papers:         []*domain.Paper{},
			TotalResults:   total,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(start),
		}
	}

	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return empty(0), nil
	}
	if len(searchResult.IDList.IDs) == 0 {
		return empty(searchResult.Count), nil
	}

	articles, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(articles.Articles))
	for i := range articles.Articles {
		papers = append(papers, articleToPaper(&articles.Articles[i]))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   searchResult.Count,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return domain.SourceTypePubMed.DisplayName()
}

// IsEnabled reports whether the source is enabled and has a contact email.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.config.Email != ""
}

// esearch returns the PMIDs matching the query.
func (c *Client) esearch(ctx context.Context, params papersources.SearchParams) (*ESearchResult, error) {
	q := c.baseQuery()
	q.Set("term", params.Query)
	q.Set("retmax", strconv.Itoa(papersources.ClampResults(params.MaxResults, 20, c.config.MaxResults)))
	q.Set("sort", "relevance")

	var result ESearchResult
	if err := c.httpClient.GetXML(ctx, c.endpoint("esearch.fcgi", q), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// efetch retrieves article records for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	q := c.baseQuery()
	q.Set("id", strings.Join(pmids, ","))
	q.Set("rettype", "abstract")

	var result PubmedArticleSet
	if err := c.httpClient.GetXML(ctx, c.endpoint("efetch.fcgi", q), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// baseQuery returns the parameters shared by both E-utilities calls.
func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("retmode", "xml")
	q.Set("tool", toolName)
	q.Set("email", c.config.Email)
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	return q
}

func (c *Client) endpoint(name string, q url.Values) string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + name + "?" + q.Encode()
}

// articleToPaper converts a PubmedArticle to a domain Paper.
func articleToPaper(article *PubmedArticle) *domain.Paper {
	citation := article.MedlineCitation
	pmid := strings.TrimSpace(citation.PMID)

	venue := citation.Article.Journal.Title
	if venue == "" {
		venue = citation.Article.Journal.ISOAbbreviation
	}

	var pdfURL string
	if pmid != "" {
		pdfURL = articleURLPrefix + pmid + "/"
	}

	paper := &domain.Paper{
		Title:         papersources.NormalizeWhitespace(citation.Article.ArticleTitle),
		Abstract:      extractAbstract(citation.Article.Abstract),
		Authors:       extractAuthors(citation.Article.AuthorList),
		Year:          extractYear(citation.Article),
		Venue:         venue,
		PDFURL:        pdfURL,
		DOI:           extractDOI(citation.Article, article.PubmedData),
		PaperID:       pmid,
		FieldsOfStudy: append([]string(nil), fieldsOfStudy...),
		Source:        domain.SourceTypePubMed.DisplayName(),
	}
	paper.Normalize()
	return paper
}

// extractDOI prefers a valid ELocationID and falls back to the ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationIDs {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return strings.TrimSpace(eloc.Value)
		}
	}
	for _, aid := range pubmedData.ArticleIDList.ArticleIDs {
		if aid.IDType == "doi" {
			return strings.TrimSpace(aid.Value)
		}
	}
	return ""
}

// extractYear uses the issue date, then a MedlineDate range, then the
// electronic publication date.
func extractYear(article Article) int {
	pubDate := article.Journal.JournalIssue.PubDate
	if year, err := strconv.Atoi(strings.TrimSpace(pubDate.Year)); err == nil {
		return year
	}
	if year := yearFromMedlineDate(pubDate.MedlineDate); year > 0 {
		return year
	}
	for _, ad := range article.ArticleDates {
		if year, err := strconv.Atoi(strings.TrimSpace(ad.Year)); err == nil {
			return year
		}
	}
	return 0
}

// yearFromMedlineDate handles "2020 Jan-Feb", "2020 Spring" and "2020-2021".
func yearFromMedlineDate(medlineDate string) int {
	parts := strings.Fields(medlineDate)
	if len(parts) == 0 {
		return 0
	}
	year, err := strconv.Atoi(strings.Split(parts[0], "-")[0])
	if err != nil {
		return 0
	}
	return year
}

// extractAbstract joins structured abstract sections, prefixing labels.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil {
		return ""
	}

	parts := make([]string, 0, len(abstract.AbstractTexts))
	for _, at := range abstract.AbstractTexts {
		text := papersources.NormalizeWhitespace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			text = at.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors, skipping invalid and nameless entries.
func extractAuthors(authorList *AuthorList) []domain.Author {
	if authorList == nil {
		return nil
	}

	authors := make([]domain.Author, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		name := a.CollectiveName
		if name == "" {
			name = strings.TrimSpace(a.ForeName + " " + a.LastName)
		}
		if name == "" {
			continue
		}

		var affiliation string
		if len(a.AffiliationInfo) > 0 {
			affiliation = a.AffiliationInfo[0].Affiliation
		}

		authors = append(authors, domain.Author{Name: name, Affiliation: affiliation})
	}
	return authors
}
