// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// Semantic Scholar is the richest metadata source: it reports citation and
// influential-citation counts, author identifiers, open access PDFs and TLDR
// summaries.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Next is the offset for the next page; 0 means no more results.
	Next int `json:"next"`

	// Data contains the papers returned by the search.
	Data []PaperResult `json:"data"`
}

// PaperResult represents a single paper in the API response.
type PaperResult struct {
	PaperID                  string         `json:"paperId"`
	Title                    string         `json:"title"`
	Abstract                 string         `json:"abstract"`
	Year                     int            `json:"year"`
	Venue                    string         `json:"venue"`
	Authors                  []Author       `json:"authors"`
	CitationCount            *int           `json:"citationCount"`
	InfluentialCitationCount *int           `json:"influentialCitationCount"`
	IsOpenAccess             bool           `json:"isOpenAccess"`
	OpenAccessPDF            *OpenAccessPDF `json:"openAccessPdf,omitempty"`
	ExternalIDs              *ExternalIDs   `json:"externalIds,omitempty"`
	FieldsOfStudy            []string       `json:"fieldsOfStudy,omitempty"`
	TLDR                     *TLDR          `json:"tldr,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	DOI    string `json:"DOI,omitempty"`
	ArXiv  string `json:"ArXiv,omitempty"`
	PubMed string `json:"PubMed,omitempty"`
}

// Author represents a paper author.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// OpenAccessPDF contains information about an open access PDF.
type OpenAccessPDF struct {
	URL    string `json:"url,omitempty"`
	Status string `json:"status,omitempty"`
}

// TLDR is the machine-generated one-sentence summary.
type TLDR struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text,omitempty"`
}
