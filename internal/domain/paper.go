// Package domain provides the canonical models shared by the paper discovery service.
package domain

import (
	"strings"
)

// Sentinel values substituted for missing fields at the source boundary.
const (
	UntitledTitle     = "Untitled"
	NoAbstract        = "No abstract available"
	UnknownVenue      = "Unknown"
	UnknownAuthorName = "Unknown"
)

// SourceType identifies a bibliographic API by its configuration key.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeCrossref        SourceType = "crossref"
	SourceTypeCORE            SourceType = "core"
	SourceTypePubMed          SourceType = "pubmed"
)

// DefaultSourceOrder is the canonical dispatch and dedup-precedence order.
var DefaultSourceOrder = []SourceType{
	SourceTypeSemanticScholar,
	SourceTypeArXiv,
	SourceTypeOpenAlex,
	SourceTypeCrossref,
	SourceTypeCORE,
	SourceTypePubMed,
}

// DisplayName returns the provenance label written into Paper.Source.
func (s SourceType) DisplayName() string {
	switch s {
	case SourceTypeSemanticScholar:
		return "Semantic Scholar"
	case SourceTypeArXiv:
		return "arXiv"
	case SourceTypeOpenAlex:
		return "OpenAlex"
	case SourceTypeCrossref:
		return "Crossref"
	case SourceTypeCORE:
		return "CORE"
	case SourceTypePubMed:
		return "PubMed"
	default:
		return string(s)
	}
}

// ParseSourceType resolves a configuration key or display name to a SourceType.
func ParseSourceType(s string) (SourceType, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	for _, st := range DefaultSourceOrder {
		if key == string(st) {
			return st, true
		}
	}
	return "", false
}

// Author represents a paper author as reported by a source.
type Author struct {
	Name        string  `json:"name"`
	AuthorID    string  `json:"author_id,omitempty"`
	Affiliation string  `json:"affiliation,omitempty"`
	HIndex      float64 `json:"h_index,omitempty"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	if a.Affiliation == "" {
		return a.Name
	}
	return a.Name + " (" + a.Affiliation + ")"
}

// Implementation is a code repository implementing a paper.
type Implementation struct {
	URL        string `json:"url"`
	Stars      int    `json:"stars"`
	IsOfficial bool   `json:"is_official"`
}

// Paper is the canonical, source-agnostic record produced by every paper source.
//
// Papers are created fresh for each search, mutated in place by the aggregator
// (field backfill) and the quality scorer (score assignment), and discarded after
// being returned.
type Paper struct {
	Title                string           `json:"title"`
	Authors              []Author         `json:"authors"`
	Abstract             string           `json:"abstract"`
	Year                 int              `json:"year,omitempty"`
	Citations            *int             `json:"citations"`
	InfluentialCitations *int             `json:"influential_citations,omitempty"`
	Venue                string           `json:"venue"`
	PDFURL               string           `json:"pdf_url,omitempty"`
	DOI                  string           `json:"doi,omitempty"`
	ArXivID              string           `json:"arxiv_id,omitempty"`
	PaperID              string           `json:"paper_id,omitempty"`
	FieldsOfStudy        []string         `json:"fields_of_study"`
	Source               string           `json:"source"`
	TLDR                 string           `json:"tldr,omitempty"`
	OpenAccess           bool             `json:"open_access,omitempty"`
	Implementations      []Implementation `json:"implementations,omitempty"`
	RelevanceScore       float64          `json:"relevance_score,omitempty"`
	QualityScore         *float64         `json:"quality_score,omitempty"`
	Sources              []string         `json:"sources,omitempty"`
}

// Normalize substitutes sentinel defaults for missing required fields and trims
// identifiers. Sources call it once per record before handing papers out.
func (p *Paper) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		p.Title = UntitledTitle
	}
	p.Abstract = strings.TrimSpace(p.Abstract)
	if p.Abstract == "" {
		p.Abstract = NoAbstract
	}
	p.Venue = strings.TrimSpace(p.Venue)
	if p.Venue == "" {
		p.Venue = UnknownVenue
	}
	p.DOI = strings.TrimSpace(p.DOI)
	p.ArXivID = strings.TrimSpace(p.ArXivID)
	p.PDFURL = strings.TrimSpace(p.PDFURL)
	if p.Year < 0 {
		p.Year = 0
	}
	if p.Citations != nil && *p.Citations < 0 {
		p.Citations = IntPtr(0)
	}
	if p.InfluentialCitations != nil && *p.InfluentialCitations < 0 {
		p.InfluentialCitations = IntPtr(0)
	}
	if p.Authors == nil {
		p.Authors = []Author{}
	}
	if p.FieldsOfStudy == nil {
		p.FieldsOfStudy = []string{}
	}
}

// CitationCount returns the reported citation count, or 0 when absent.
func (p *Paper) CitationCount() int {
	if p.Citations == nil || *p.Citations < 0 {
		return 0
	}
	return *p.Citations
}

// InfluentialCitationCount returns the reported influential citation count, or 0.
func (p *Paper) InfluentialCitationCount() int {
	if p.InfluentialCitations == nil || *p.InfluentialCitations < 0 {
		return 0
	}
	return *p.InfluentialCitations
}

// HasAbstract reports whether the abstract carries real content.
func (p *Paper) HasAbstract() bool {
	return p.Abstract != "" && p.Abstract != NoAbstract
}

// AddSource appends a provenance label if it is not already recorded.
func (p *Paper) AddSource(source string) {
	for _, s := range p.Sources {
		if s == source {
			return
		}
	}
	p.Sources = append(p.Sources, source)
}

// Clone returns a deep copy of the paper.
func (p *Paper) Clone() *Paper {
	c := *p
	if p.Authors != nil {
		c.Authors = append(make([]Author, 0, len(p.Authors)), p.Authors...)
	}
	if p.FieldsOfStudy != nil {
		c.FieldsOfStudy = append(make([]string, 0, len(p.FieldsOfStudy)), p.FieldsOfStudy...)
	}
	if p.Implementations != nil {
		c.Implementations = append(make([]Implementation, 0, len(p.Implementations)), p.Implementations...)
	}
	if p.Sources != nil {
		c.Sources = append(make([]string, 0, len(p.Sources)), p.Sources...)
	}
	if p.Citations != nil {
		c.Citations = IntPtr(*p.Citations)
	}
	if p.InfluentialCitations != nil {
		c.InfluentialCitations = IntPtr(*p.InfluentialCitations)
	}
	if p.QualityScore != nil {
		v := *p.QualityScore
		c.QualityScore = &v
	}
	return &c
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
