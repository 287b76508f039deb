package dto

type CreateTaskRequest struct {
	Name              string `json:"name" binding:"required"`
	TaskType          string `json:"task_type" binding:"required"`
	Config            string `json:"config"`
	ExecutionOrder    int    `json:"execution_order"`
	MaxRetries        int    `json:"max_retries"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	ContinueOnFailure bool   `json:"continue_on_failure"`
}

type CreateJobRequest struct {
	GroupID        string              `json:"group_id"`
	Name           string              `json:"name" binding:"required"`
	JobType        string              `json:"job_type"`
	ExecutionOrder int                 `json:"execution_order"`
	Tasks          []CreateTaskRequest `json:"tasks" binding:"required,min=1,dive"`
}

type ListJobsRequest struct {
	GroupID  string `form:"group_id"`
	JobType  string `form:"job_type"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type TaskDTO struct {
	TaskID            string `json:"task_id"`
	Name              string `json:"name"`
	TaskType          string `json:"task_type"`
	Config            string `json:"config,omitempty"`
	ExecutionOrder    int    `json:"execution_order"`
	MaxRetries        int    `json:"max_retries"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	ContinueOnFailure bool   `json:"continue_on_failure"`
	IsActive          bool   `json:"is_active"`
}

type JobDTO struct {
	JobID          string    `json:"job_id"`
	GroupID        string    `json:"group_id,omitempty"`
	Name           string    `json:"name"`
	JobType        string    `json:"job_type,omitempty"`
	ExecutionOrder int       `json:"execution_order"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
	Tasks          []TaskDTO `json:"tasks,omitempty"`
}
