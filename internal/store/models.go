package store

import "time"

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one end-to-end execution
type Run struct {
	ID          string     `json:"id"`
	Mode        string     `json:"mode"`
	SeedPostURL string     `json:"seed_post_url"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	OutputPath  string     `json:"output_path,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"` // nil while running
}

// TargetPostRecord is the post resolved for a target during a run
type TargetPostRecord struct {
	Target string `json:"target"`
	PostID string `json:"post_id,omitempty"`
	URL    string `json:"url,omitempty"`
	Pinned bool   `json:"pinned"`
	Error  string `json:"error,omitempty"`
}
