// Package openalex provides a client for the OpenAlex works API.
//
// OpenAlex is a free index of scholarly works. Abstracts are delivered as an
// inverted index and are reassembled into plain text by this package.
//
// API Documentation: https://docs.openalex.org/
package openalex

// SearchResponse is the envelope returned by the /works endpoint.
type SearchResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta carries paging information.
type Meta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Work is a single scholarly work.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	Type            string       `json:"type"`
	CitedByCount    int          `json:"cited_by_count"`
	OpenAccess      *OpenAccess  `json:"open_access"`
	Authorships     []Authorship `json:"authorships"`
	PrimaryLocation *Location    `json:"primary_location"`
	Concepts        []Concept    `json:"concepts"`

	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// OpenAccess describes the open-access status of a work.
type OpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

// Authorship links an author to a work.
type Authorship struct {
	Author       AuthorInfo    `json:"author"`
	Institutions []Institution `json:"institutions"`
}

// AuthorInfo identifies an author.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Institution is an author affiliation.
type Institution struct {
	DisplayName string `json:"display_name"`
}

// Location is where a work is hosted.
type Location struct {
	Source *Source `json:"source"`
	PDFURL string  `json:"pdf_url"`
}

// Source is the journal or repository hosting a location.
type Source struct {
	DisplayName string `json:"display_name"`
}

// Concept is a topic tag with a relevance score.
type Concept struct {
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}
