package domain

// AgentStatus represents the lifecycle state of a search agent.
type AgentStatus string

const (
	AgentStatusIdle      AgentStatus = "idle"
	AgentStatusSearching AgentStatus = "searching"
	AgentStatusCompleted AgentStatus = "completed"
	AgentStatusFailed    AgentStatus = "failed"
	AgentStatusTimeout   AgentStatus = "timeout"
)

// AgentMetrics is the per-agent record of a single search.
type AgentMetrics struct {
	Name            string      `json:"name"`
	Source          string      `json:"source"`
	Status          AgentStatus `json:"status"`
	ResultsCount    int         `json:"results_count"`
	RawResultsCount int         `json:"raw_results_count"`
	DurationSeconds float64     `json:"duration_seconds"`
	Error           string      `json:"error,omitempty"`
}
