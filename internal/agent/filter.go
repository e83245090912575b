package agent

import (
	"math"
	"sort"
	"strings"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// Relevance weights.
const (
	titleMatchWeight    = 3.0
	abstractMatchWeight = 2.0
	citationWeight      = 1.5
	recencyWeight       = 1.0
	venueWeight         = 1.0
	openAccessWeight    = 0.25

	// citationCap is the count at which the citation factor saturates.
	citationCap = 100.0

	// recencyHorizon is the age in years at which the recency factor reaches zero.
	recencyHorizon = 10.0

	// unknownYear stands in for a missing publication year when scoring recency.
	unknownYear = 2000

	// oldPaperCitationFloor applies to papers older than five years.
	oldPaperCitationFloor = 15
)

// relevanceVenues are matched as substrings of the lowercased venue.
var relevanceVenues = []string{
	"nature", "science", "cell", "lancet", "jama",
	"neurips", "icml", "cvpr", "iclr", "acl", "emnlp",
	"aaai", "ijcai", "kdd", "www", "sigir",
	"ieee", "acm", "plos", "proceedings of the national academy",
}

// FilterPolicy configures smart filtering for one source.
type FilterPolicy struct {
	// YearWindow is the lookback in years. Zero disables the year filter.
	YearWindow int `json:"year_window"`

	// AdaptiveCitations enables the age-scaled minimum-citation threshold.
	// Sources without citation counts leave it off.
	AdaptiveCitations bool `json:"adaptive_citations"`

	// OverFetchRatio scales the number of records requested before filtering.
	OverFetchRatio float64 `json:"over_fetch_ratio"`
}

// DefaultOverFetchRatio is the request multiplier applied when smart search runs.
const DefaultOverFetchRatio = 1.3

// DefaultPolicy returns the smart-filter policy for a source.
func DefaultPolicy(source domain.SourceType) FilterPolicy {
	policy := FilterPolicy{
		YearWindow:        5,
		AdaptiveCitations: true,
		OverFetchRatio:    DefaultOverFetchRatio,
	}
	switch source {
	case domain.SourceTypeArXiv:
		policy.YearWindow = 3
		policy.AdaptiveCitations = false
	case domain.SourceTypeCORE:
		policy.YearWindow = 10
		policy.AdaptiveCitations = false
	case domain.SourceTypePubMed:
		policy.AdaptiveCitations = false
	}
	return policy
}

// OverFetch returns ceil(maxResults * ratio), never less than maxResults.
func OverFetch(maxResults int, ratio float64) int {
	if ratio < 1 {
		return maxResults
	}
	n := int(math.Ceil(float64(maxResults) * ratio))
	if n < maxResults {
		return maxResults
	}
	return n
}

// FilterByYear keeps papers published in [minYear, maxYear]. Papers without a
// year are dropped.
func FilterByYear(papers []*domain.Paper, minYear, maxYear int) []*domain.Paper {
	filtered := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		if p.Year == 0 || p.Year < minYear || p.Year > maxYear {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// MinCitations returns the citation floor for a paper of the given age.
func MinCitations(age int) int {
	switch {
	case age <= 1:
		return 0
	case age == 2:
		return 2
	case age == 3:
		return 5
	case age <= 5:
		return 10
	default:
		return oldPaperCitationFloor
	}
}

// FilterByCitations keeps papers meeting the age-scaled citation floor.
// Missing citation counts count as zero and a missing year as this year.
func FilterByCitations(papers []*domain.Paper, currentYear int) []*domain.Paper {
	filtered := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		year := p.Year
		if year == 0 {
			year = currentYear
		}
		if p.CitationCount() >= MinCitations(currentYear-year) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// RelevanceScore rates how well a paper matches the query terms, on a scale of
// roughly 0 to 9.75. Title overlap dominates, followed by abstract overlap.
func RelevanceScore(p *domain.Paper, terms map[string]struct{}, currentYear int) float64 {
	var score float64

	if len(terms) > 0 {
		score += titleMatchWeight * overlap(terms, p.Title)
		if p.HasAbstract() {
			score += abstractMatchWeight * overlap(terms, p.Abstract)
		}
	}

	score += citationWeight * math.Min(float64(p.CitationCount())/citationCap, 1.0)

	year := p.Year
	if year == 0 {
		year = unknownYear
	}
	score += recencyWeight * math.Max(0, 1.0-float64(currentYear-year)/recencyHorizon)

	venue := strings.ToLower(p.Venue)
	for _, v := range relevanceVenues {
		if strings.Contains(venue, v) {
			score += venueWeight
			break
		}
	}

	if p.PDFURL != "" || p.OpenAccess {
		score += openAccessWeight
	}

	return score
}

// RankByRelevance sets RelevanceScore on every paper and sorts by it,
// descending. Equal scores keep source order.
func RankByRelevance(papers []*domain.Paper, query string, currentYear int) {
	terms := queryTerms(query)
	for _, p := range papers {
		p.RelevanceScore = RelevanceScore(p, terms, currentYear)
	}
	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].RelevanceScore > papers[j].RelevanceScore
	})
}

// SmartFilter applies the year window, the adaptive citation floor and
// relevance ranking, in that order.
func SmartFilter(papers []*domain.Paper, query string, policy FilterPolicy, currentYear int) []*domain.Paper {
	filtered := papers
	if policy.YearWindow > 0 {
		filtered = FilterByYear(filtered, currentYear-policy.YearWindow, currentYear)
	}
	if policy.AdaptiveCitations {
		filtered = FilterByCitations(filtered, currentYear)
	}
	RankByRelevance(filtered, query, currentYear)
	return filtered
}

// queryTerms returns the distinct lowercased whitespace-separated terms.
func queryTerms(query string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(query))
	terms := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		terms[f] = struct{}{}
	}
	return terms
}

// overlap returns the fraction of terms that appear as words of text.
func overlap(terms map[string]struct{}, text string) float64 {
	words := queryTerms(text)
	matched := 0
	for t := range terms {
		if _, ok := words[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
