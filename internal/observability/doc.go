// Package observability provides logging, metrics, and context helpers for
// the paper discovery service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//
// Components derive child loggers with a component field, and searches add
// their identifiers:
//
//	logger = observability.WithSearchContext(logger, searchID, query)
//	logger = observability.WithSourceContext(logger, "arxiv", "arXiv Agent")
//
// # Metrics
//
// Metrics are registered with an explicit registerer so tests can use a
// private registry:
//
//	metrics := observability.NewMetrics("paper_discovery", prometheus.DefaultRegisterer)
//	metrics.RecordSourceSearch("arxiv", "completed", 20, 1.2)
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - search_id: parallel search identifier
//   - query: the user's search query
//   - source: paper source key (semantic_scholar, arxiv, ...)
//   - agent: search agent name
//   - component: emitting subsystem (agent, orchestrator, http, cli)
package observability
