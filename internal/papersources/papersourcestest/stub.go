// Package papersourcestest provides a programmable PaperSource for tests.
package papersourcestest

import (
	"context"
	"sync/atomic"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

// Source is a PaperSource whose behavior is set per test.
type Source struct {
	Type    domain.SourceType
	Label   string
	Enabled bool

	// SearchFunc overrides the default behavior of returning Papers.
	SearchFunc func(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error)

	// Papers are returned (cloned and normalized) when SearchFunc is nil.
	Papers []*domain.Paper

	calls      atomic.Int32
	lastParams atomic.Value
}

var _ papersources.PaperSource = (*Source)(nil)

// New creates an enabled stub returning papers. Each paper's Source is set to label.
func New(sourceType domain.SourceType, label string, papers ...*domain.Paper) *Source {
	return &Source{Type: sourceType, Label: label, Enabled: true, Papers: papers}
}

// Search implements papersources.PaperSource.
func (s *Source) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	s.calls.Add(1)
	s.lastParams.Store(params)
	if s.SearchFunc != nil {
		return s.SearchFunc(ctx, params)
	}

	papers := make([]*domain.Paper, 0, len(s.Papers))
	for _, p := range s.Papers {
		c := p.Clone()
		if c.Source == "" {
			c.Source = s.Label
		}
		c.Normalize()
		papers = append(papers, c)
	}
	return &papersources.SearchResult{
		Papers:       papers,
		TotalResults: len(papers),
		Source:       s.Type,
	}, nil
}

// SourceType implements papersources.PaperSource.
func (s *Source) SourceType() domain.SourceType { return s.Type }

// Name implements papersources.PaperSource.
func (s *Source) Name() string { return s.Label }

// IsEnabled implements papersources.PaperSource.
func (s *Source) IsEnabled() bool { return s.Enabled }

// Calls returns how many times Search was invoked.
func (s *Source) Calls() int { return int(s.calls.Load()) }

// LastParams returns the parameters of the most recent Search call.
func (s *Source) LastParams() papersources.SearchParams {
	if v, ok := s.lastParams.Load().(papersources.SearchParams); ok {
		return v
	}
	return papersources.SearchParams{}
}
