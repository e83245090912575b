package quality

import (
	"strings"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// ByYear keeps papers published in [minYear, maxYear]. A zero bound is open.
// Papers without a year are dropped.
func ByYear(papers []*domain.Paper, minYear, maxYear int) []*domain.Paper {
	return keep(papers, func(p *domain.Paper) bool {
		if p.Year <= 0 {
			return false
		}
		if minYear > 0 && p.Year < minYear {
			return false
		}
		return maxYear <= 0 || p.Year <= maxYear
	})
}

// ByCitations keeps papers with at least minCitations. Missing counts are zero.
func ByCitations(papers []*domain.Paper, minCitations int) []*domain.Paper {
	return keep(papers, func(p *domain.Paper) bool {
		return p.CitationCount() >= minCitations
	})
}

// ByVenue keeps papers whose venue contains any of venues, case-insensitively.
// An empty list keeps everything.
func ByVenue(papers []*domain.Paper, venues []string) []*domain.Paper {
	if len(venues) == 0 {
		return papers
	}
	needles := lowerAll(venues)
	return keep(papers, func(p *domain.Paper) bool {
		return containsAny(strings.ToLower(p.Venue), needles)
	})
}

// ByField keeps papers listing field among their fields of study.
func ByField(papers []*domain.Paper, field string) []*domain.Paper {
	if field == "" {
		return papers
	}
	return keep(papers, func(p *domain.Paper) bool {
		for _, f := range p.FieldsOfStudy {
			if strings.EqualFold(f, field) {
				return true
			}
		}
		return false
	})
}

// ByKeywords keeps papers whose title or abstract mentions any keyword.
func ByKeywords(papers []*domain.Paper, keywords []string) []*domain.Paper {
	if len(keywords) == 0 {
		return papers
	}
	needles := lowerAll(keywords)
	return keep(papers, func(p *domain.Paper) bool {
		return containsAny(strings.ToLower(p.Title+" "+p.Abstract), needles)
	})
}

// OpenAccessOnly keeps papers flagged open access or carrying a PDF link.
func OpenAccessOnly(papers []*domain.Paper) []*domain.Paper {
	return keep(papers, func(p *domain.Paper) bool {
		return p.OpenAccess || p.PDFURL != ""
	})
}

// Criteria combines the post-filters. Zero-valued fields are not applied.
type Criteria struct {
	YearFrom       int      `json:"year_from,omitempty" validate:"omitempty,min=1000,max=3000"`
	YearTo         int      `json:"year_to,omitempty" validate:"omitempty,min=1000,max=3000"`
	MinCitations   int      `json:"min_citations,omitempty" validate:"min=0"`
	Venues         []string `json:"venues,omitempty"`
	Field          string   `json:"field,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	OpenAccessOnly bool     `json:"open_access_only,omitempty"`
	MinQuality     float64  `json:"min_quality,omitempty" validate:"min=0,max=1"`
}

// IsZero reports whether no filter is set.
func (c Criteria) IsZero() bool {
	return c.YearFrom == 0 && c.YearTo == 0 && c.MinCitations == 0 &&
		len(c.Venues) == 0 && c.Field == "" && len(c.Keywords) == 0 &&
		!c.OpenAccessOnly && c.MinQuality == 0
}

// Apply runs every configured filter, preserving input order.
func (c Criteria) Apply(papers []*domain.Paper) []*domain.Paper {
	out := papers
	if c.YearFrom > 0 || c.YearTo > 0 {
		out = ByYear(out, c.YearFrom, c.YearTo)
	}
	if c.MinCitations > 0 {
		out = ByCitations(out, c.MinCitations)
	}
	out = ByVenue(out, c.Venues)
	out = ByField(out, c.Field)
	out = ByKeywords(out, c.Keywords)
	if c.OpenAccessOnly {
		out = OpenAccessOnly(out)
	}
	if c.MinQuality > 0 {
		out = FilterByQuality(out, c.MinQuality)
	}
	return out
}

func keep(papers []*domain.Paper, pred func(*domain.Paper) bool) []*domain.Paper {
	out := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}
