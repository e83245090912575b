// Package papersources provides the capability interface and shared transport for
// bibliographic API clients.
//
// Each API (Semantic Scholar, arXiv, OpenAlex, Crossref, CORE, PubMed) has its own
// subpackage implementing PaperSource. Clients own their HTTP transport, rate limiter
// and response mapping, and hand out normalized domain.Paper records only.
//
// Example usage:
//
//	source := openalex.New(openalex.Config{Email: "team@example.org"})
//	result, err := source.Search(ctx, papersources.SearchParams{
//		Query:      "graph neural networks",
//		MaxResults: 26,
//	})
package papersources

import (
	"context"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

// SearchParams defines the parameters for a single source query.
type SearchParams struct {
	// Query is the free-text search query (required).
	Query string

	// MaxResults is the number of records requested. Sources clamp it to
	// their own ceiling; a value of 0 uses the source default.
	MaxResults int
}

// SearchResult contains the normalized records returned by one source query.
type SearchResult struct {
	// Papers are normalized records in the order the source returned them.
	Papers []*domain.Paper

	// TotalResults is the source-reported match count, when available.
	TotalResults int

	// Source identifies which paper source provided these results.
	Source domain.SourceType

	// SearchDuration is the wall-clock time of the request including parsing.
	SearchDuration time.Duration
}

// PaperSource is implemented once per bibliographic API.
type PaperSource interface {
	// Search queries the source. Implementations must respect context
	// cancellation, apply their own rate limiting, and return records on
	// which domain.Paper.Normalize has already been applied.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the configuration key of this source.
	SourceType() domain.SourceType

	// Name returns the provenance label written into Paper.Source.
	Name() string

	// IsEnabled reports whether the source is usable. Sources that require
	// credentials report false when none are configured.
	IsEnabled() bool
}

// ClampResults bounds a requested result count to [1, ceiling], substituting
// fallback for non-positive requests.
func ClampResults(requested, fallback, ceiling int) int {
	if requested <= 0 {
		requested = fallback
	}
	if ceiling > 0 && requested > ceiling {
		return ceiling
	}
	if requested < 1 {
		return 1
	}
	return requested
}
