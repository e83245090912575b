package discovery

import (
	"regexp"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// maxSelectedSources caps topic-based source selection.
const maxSelectedSources = 3

// topicRule routes queries matching pattern to sources, in preference order.
type topicRule struct {
	pattern *regexp.Regexp
	sources []domain.SourceType
}

var topicRules = []topicRule{
	{
		pattern: regexp.MustCompile(`(?i)\b(machine learning|deep learning|neural|ai|artificial intelligence|nlp|computer vision|reinforcement)\b`),
		sources: []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeSemanticScholar},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(medical|clinical|disease|health|biomedical|drug|therapy|patient)s?\b`),
		sources: []domain.SourceType{domain.SourceTypePubMed, domain.SourceTypeSemanticScholar},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(quantum|physics|particle|relativity)\b`),
		sources: []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeOpenAlex},
	},
}

var broadSources = []domain.SourceType{
	domain.SourceTypeSemanticScholar,
	domain.SourceTypeArXiv,
	domain.SourceTypeOpenAlex,
}

// SelectSources picks at most three of the available sources suited to the
// query topic. Machine learning queries go to arXiv and Semantic Scholar,
// biomedical ones to PubMed and Semantic Scholar, physics to arXiv and
// OpenAlex. Other queries use the broad general-purpose sources. If none of
// the preferred sources is available the first two available are used.
func SelectSources(query string, available []domain.SourceType) []domain.SourceType {
	has := make(map[domain.SourceType]bool, len(available))
	for _, s := range available {
		has[s] = true
	}

	preferred := broadSources
	for _, rule := range topicRules {
		if rule.pattern.MatchString(query) {
			preferred = rule.sources
			break
		}
	}

	selected := make([]domain.SourceType, 0, maxSelectedSources)
	for _, s := range preferred {
		if has[s] && len(selected) < maxSelectedSources {
			selected = append(selected, s)
		}
	}

	if len(selected) == 0 {
		n := min(2, len(available))
		selected = append(selected, available[:n]...)
	}
	return selected
}
