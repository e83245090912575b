// Package dedup merges paper lists from several sources into one list with
// each paper appearing once.
package dedup

import (
	"strings"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// DOIKey returns the dedup key for a DOI, or "" if the DOI is empty.
func DOIKey(doi string) string {
	return strings.ToLower(strings.TrimSpace(doi))
}

// TitleKey returns the title lowercased with everything except ASCII letters
// and digits removed. "Deep Learning!" and "deep-learning" share a key.
func TitleKey(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Stats summarizes one aggregation.
type Stats struct {
	Raw    int
	Unique int
	Merged int
}

// Aggregator deduplicates papers by DOI, then by normalized title.
//
// The first sighting of a paper wins: later duplicates only fill its empty
// PDFURL, DOI, ArXivID and Citations fields and add their source label to
// Sources. Input order decides which sighting is first, so callers pass
// source lists in a fixed source order rather than completion order.
type Aggregator struct {
	byDOI   map[string]*domain.Paper
	byTitle map[string]*domain.Paper
	out     []*domain.Paper
	stats   Stats
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byDOI:   make(map[string]*domain.Paper),
		byTitle: make(map[string]*domain.Paper),
	}
}

// Add feeds one source's papers into the aggregator.
func (a *Aggregator) Add(papers []*domain.Paper) {
	for _, p := range papers {
		if p == nil {
			continue
		}
		a.stats.Raw++
		a.add(p)
	}
}

func (a *Aggregator) add(p *domain.Paper) {
	doiKey := DOIKey(p.DOI)
	if doiKey != "" {
		if first, ok := a.byDOI[doiKey]; ok {
			a.merge(first, p)
			return
		}
	}

	titleKey := TitleKey(p.Title)
	if titleKey != "" {
		if first, ok := a.byTitle[titleKey]; ok {
			a.merge(first, p)
			// The duplicate may carry a DOI the first sighting lacked.
			if doiKey != "" {
				a.byDOI[doiKey] = first
			}
			return
		}
	}

	if doiKey != "" {
		a.byDOI[doiKey] = p
	}
	if titleKey != "" {
		a.byTitle[titleKey] = p
	}
	a.out = append(a.out, p)
}

func (a *Aggregator) merge(first, dup *domain.Paper) {
	a.stats.Merged++

	if first.PDFURL == "" && dup.PDFURL != "" {
		first.PDFURL = dup.PDFURL
	}
	if first.DOI == "" && dup.DOI != "" {
		first.DOI = dup.DOI
	}
	if first.ArXivID == "" && dup.ArXivID != "" {
		first.ArXivID = dup.ArXivID
	}
	if first.CitationCount() == 0 && dup.CitationCount() > 0 {
		first.Citations = domain.IntPtr(dup.CitationCount())
	}

	if len(first.Sources) == 0 && first.Source != "" {
		first.Sources = []string{first.Source}
	}
	if dup.Source != "" {
		first.AddSource(dup.Source)
	}
	for _, s := range dup.Sources {
		first.AddSource(s)
	}
}

// Papers returns the unique papers in first-seen order.
func (a *Aggregator) Papers() []*domain.Paper {
	out := make([]*domain.Paper, len(a.out))
	copy(out, a.out)
	return out
}

// Stats returns the counts accumulated so far.
func (a *Aggregator) Stats() Stats {
	s := a.stats
	s.Unique = len(a.out)
	return s
}

// Aggregate flattens results in order and returns the deduplicated papers.
// Duplicates are merged into the first-seen paper in place.
func Aggregate(results [][]*domain.Paper) []*domain.Paper {
	a := NewAggregator()
	for _, papers := range results {
		a.Add(papers)
	}
	return a.Papers()
}
