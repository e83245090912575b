// Package arxiv provides a client for the arXiv Atom query API.
//
// arXiv does not track citations, so papers from this source carry a nil
// citation count and the venue "arXiv".
//
// API Documentation: https://info.arxiv.org/help/api/user-manual.html
package arxiv

import "encoding/xml"

// Feed is the Atom feed returned by the query endpoint.
type Feed struct {
	XMLName      xml.Name `xml:"feed"`
	TotalResults int      `xml:"totalResults"`
	StartIndex   int      `xml:"startIndex"`
	ItemsPerPage int      `xml:"itemsPerPage"`
	Entries      []Entry  `xml:"entry"`
}

// Entry is a single paper in the feed.
type Entry struct {
	ID         string     `xml:"id"` // "http://arxiv.org/abs/2301.12345v1"
	Title      string     `xml:"title"`
	Summary    string     `xml:"summary"`
	Published  string     `xml:"published"` // "2023-01-15T18:30:00Z"
	Authors    []Author   `xml:"author"`
	Categories []Category `xml:"category"`
	Links      []Link     `xml:"link"`
	DOI        string     `xml:"doi"`
	JournalRef string     `xml:"journal_ref"`
}

// Author is an entry author.
type Author struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

// Category is an arXiv subject classification such as "cs.LG".
type Category struct {
	Term string `xml:"term,attr"`
}

// Link is an alternate representation of the entry.
type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}
