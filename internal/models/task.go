package models

// TaskStatus is reported by the scraper service. Anything that is not
// completed or failed is treated as still pending.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// SearchTask mirrors GET /jobs/status/{taskId}. Owned by the scraper; read only.
type SearchTask struct {
	TaskID   string     `json:"taskId"`
	SearchID string     `json:"searchId,omitempty"`
	Status   TaskStatus `json:"status"`
	Progress int        `json:"progress"`
	Message  string     `json:"message"`
	Error    string     `json:"error,omitempty"`
}

func (t SearchTask) Terminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}

// PipelineJob is the unit handed to the background pipeline.
type PipelineJob struct {
	SearchID string         `json:"search_id"`
	TaskID   string         `json:"task_id"`
	UserID   string         `json:"user_id"`
	Criteria SearchCriteria `json:"criteria"`
}
