// Package crossref provides a client for the Crossref REST API.
//
// Crossref indexes DOI registrations. Abstracts arrive as JATS XML fragments
// and are flattened to plain text. Requests carry a mailto contact in the
// User-Agent so they are routed to the polite pool.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse is the envelope returned by the /works endpoint.
type WorksResponse struct {
	Status  string  `json:"status"`
	Message Message `json:"message"`
}

// Message holds the result page.
type Message struct {
	TotalResults int    `json:"total-results"`
	Items        []Item `json:"items"`
}

// Item is a single registered work.
type Item struct {
	DOI                 string     `json:"DOI"`
	Title               []string   `json:"title"`
	ContainerTitle      []string   `json:"container-title"`
	Publisher           string     `json:"publisher"`
	Abstract            string     `json:"abstract"`
	Author              []Author   `json:"author"`
	Published           *DateParts `json:"published"`
	Issued              *DateParts `json:"issued"`
	IsReferencedByCount int        `json:"is-referenced-by-count"`
	Subject             []string   `json:"subject"`
	Link                []Link     `json:"link"`
	Type                string     `json:"type"`
}

// Author is a contributor to a work.
type Author struct {
	Given       string        `json:"given"`
	Family      string        `json:"family"`
	Name        string        `json:"name"`
	ORCID       string        `json:"ORCID"`
	Affiliation []Affiliation `json:"affiliation"`
}

// Affiliation is an author affiliation.
type Affiliation struct {
	Name string `json:"name"`
}

// DateParts is Crossref's partial date, e.g. [[2021, 6, 1]].
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Link is a full-text link.
type Link struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}
