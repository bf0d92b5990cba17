package model

import "time"

// RunStatus is the lifecycle status of one orchestrator run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunRecord is one row of run history: when the orchestrator ran and what it
// accomplished. Kept for audit alongside the per-filing state.
type RunRecord struct {
	ID         int64      `json:"id"`
	Status     RunStatus  `json:"status"`
	Summary    RunSummary `json:"summary"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
