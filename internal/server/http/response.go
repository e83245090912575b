package httpserver

import (
	"github.com/helixir/paper-discovery-service/internal/discovery"
	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/quality"
)

type healthResponse struct {
	Status         string `json:"status"`
	EnabledSources int    `json:"enabled_sources"`
}

// paperResponse is a ranked paper, optionally with its score breakdown.
type paperResponse struct {
	*domain.Paper
	QualityBreakdown *quality.Breakdown `json:"quality_breakdown,omitempty"`
}

type searchResponse struct {
	SearchID string                  `json:"search_id"`
	Results  []paperResponse         `json:"results"`
	Count    int                     `json:"count"`
	Metrics  discovery.SearchMetrics `json:"metrics"`
}

type rankResponse struct {
	Results []paperResponse `json:"results"`
	Count   int             `json:"count"`
	Dropped int             `json:"dropped"`
}

type listSourcesResponse struct {
	Sources []discovery.AgentInfo `json:"sources"`
}

// Converter functions

func papersToResponse(papers []*domain.Paper, scorer *quality.Scorer, explain bool) []paperResponse {
	out := make([]paperResponse, len(papers))
	for i, p := range papers {
		out[i] = paperResponse{Paper: p}
		if explain && scorer != nil {
			b := scorer.Breakdown(p)
			out[i].QualityBreakdown = &b
		}
	}
	return out
}
