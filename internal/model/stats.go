package model

import "time"

// RunStatus represents the lifecycle state of an agent run.
type RunStatus string

const (
	RunStatusIdle    RunStatus = "idle"
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusError   RunStatus = "error"
)

// RunStats describes the in-flight or most recent run. It is mutated only
// by the orchestrator; callers observe it through snapshots.
type RunStats struct {
	Status            RunStatus  `json:"status"`
	LastQuery         string     `json:"last_query,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	PagesProcessed    int        `json:"pages_processed"`
	LeadsWritten      int        `json:"leads_written"`
	SkippedDuplicates int        `json:"skipped_duplicates"`
	Errors            int        `json:"errors"`
}
