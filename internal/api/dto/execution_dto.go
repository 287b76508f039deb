package dto

type ListExecutionsRequest struct {
	JobID    string `form:"job_id"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListExecutionsResponse struct {
	Executions []ExecutionDTO `json:"executions"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type ExecutionDTO struct {
	ExecutionID        string `json:"execution_id"`
	JobID              string `json:"job_id"`
	Status             string `json:"status"`
	StartedAt          string `json:"started_at,omitempty"`
	CompletedAt        string `json:"completed_at,omitempty"`
	DurationMs         int64  `json:"duration_ms"`
	CurrentTaskIndex   int    `json:"current_task_index"`
	TotalTasks         int    `json:"total_tasks"`
	ProgressPercentage int    `json:"progress_percentage"`
	ErrorMessage       string `json:"error_message,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}
