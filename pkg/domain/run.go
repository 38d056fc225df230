package domain

import "time"

// RunStatus is the lifecycle state of a top-level run.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusListening RunStatus = "listening"
	StatusCompleted RunStatus = "completed"
	StatusStopped   RunStatus = "stopped"
	StatusFailed    RunStatus = "failed"
)

// Active reports whether the status belongs to a run that has not finished.
func (s RunStatus) Active() bool {
	return s == StatusRunning || s == StatusListening
}

// RunInfo is a snapshot of a top-level run.
type RunInfo struct {
	ID        string    `json:"id,omitempty"`
	Script    string    `json:"script,omitempty"`
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Error     string    `json:"error,omitempty"`
	// Commands lists the command names the run currently handles.
	Commands []string `json:"commands,omitempty"`
}
