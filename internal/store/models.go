package store

import "time"

// RunStatus is the lifecycle state of a scrape run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run kinds
const (
	RunKindFixtures  = "fixtures"
	RunKindStandings = "standings"
)

// Run is one invocation of the scraper.
type Run struct {
	RunID      string     `json:"run_id"`
	Kind       string     `json:"kind"`
	Seasons    []string   `json:"seasons"`
	Status     RunStatus  `json:"status"`
	Records    int        `json:"records"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
