package jobrun

import "time"

const (
	WorkflowName = "job_run"
	ActivityTick = "job_run_tick"
)

// TickResult is what one activity tick reports back to the workflow: the
// job's status after running its handler once, plus an optional wait window
// for yielded composite jobs.
type TickResult struct {
	JobID     string     `json:"job_id"`
	Status    string     `json:"status"`
	Stage     string     `json:"stage,omitempty"`
	Progress  int        `json:"progress,omitempty"`
	Message   string     `json:"message,omitempty"`
	WaitUntil *time.Time `json:"wait_until,omitempty"`
}
