package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution status constants. An execution moves
// PENDING -> RUNNING -> {COMPLETED | FAILED | CANCELED} and never leaves
// a terminal state; re-running a job always creates a new execution.
const (
	ExecutionStatusPending   = "PENDING"
	ExecutionStatusRunning   = "RUNNING"
	ExecutionStatusCompleted = "COMPLETED"
	ExecutionStatusFailed    = "FAILED"
	ExecutionStatusCanceled  = "CANCELED"
)

// JobExecution is the audit record of one run of a job. It is created at
// job-start time, mutated only by the orchestrator that owns the run, and
// frozen once terminal.
type JobExecution struct {
	ExecutionID        string     `db:"execution_id"`
	JobID              string     `db:"job_id"`
	Status             string     `db:"status"`
	StartedAt          *time.Time `db:"started_at"`
	CompletedAt        *time.Time `db:"completed_at"`
	DurationMs         int64      `db:"duration_ms"`
	CurrentTaskIndex   int        `db:"current_task_index"`
	TotalTasks         int        `db:"total_tasks"`
	ProgressPercentage int        `db:"progress_percentage"`
	ErrorMessage       string     `db:"error_message"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// NewJobExecution creates a PENDING execution for the given job.
func NewJobExecution(jobID string, totalTasks int) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ExecutionID: uuid.New().String(),
		JobID:       jobID,
		Status:      ExecutionStatusPending,
		TotalTasks:  totalTasks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsTerminal reports whether the execution reached a final status.
func (e *JobExecution) IsTerminal() bool {
	switch e.Status {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCanceled:
		return true
	}
	return false
}

// MarkRunning transitions the execution to RUNNING and stamps StartedAt.
func (e *JobExecution) MarkRunning() {
	if e.IsTerminal() {
		return
	}
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
	e.UpdatedAt = now
}

// AdvanceTask records that one more task reached a terminal outcome and
// recomputes the progress percentage.
func (e *JobExecution) AdvanceTask() {
	if e.IsTerminal() {
		return
	}
	e.CurrentTaskIndex++
	e.ProgressPercentage = e.Progress()
	e.UpdatedAt = time.Now()
}

// Progress derives the integer percentage floor(100 * index / total).
// A job with no tasks is trivially complete.
func (e *JobExecution) Progress() int {
	if e.TotalTasks <= 0 {
		return 100
	}
	return 100 * e.CurrentTaskIndex / e.TotalTasks
}

// MarkCompleted finalizes the execution as COMPLETED.
func (e *JobExecution) MarkCompleted() {
	e.finalize(ExecutionStatusCompleted, "")
}

// MarkFailed finalizes the execution as FAILED with the first fatal cause.
func (e *JobExecution) MarkFailed(errorMessage string) {
	e.finalize(ExecutionStatusFailed, errorMessage)
}

// MarkCanceled finalizes the execution as CANCELED.
func (e *JobExecution) MarkCanceled() {
	e.finalize(ExecutionStatusCanceled, "")
}

// finalize performs the terminal transition exactly once: CompletedAt and
// DurationMs are set on the first call and never touched again.
func (e *JobExecution) finalize(status, errorMessage string) {
	if e.IsTerminal() {
		return
	}
	now := time.Now()
	e.Status = status
	e.CompletedAt = &now
	if e.StartedAt != nil {
		e.DurationMs = now.Sub(*e.StartedAt).Milliseconds()
	}
	if errorMessage != "" {
		e.ErrorMessage = errorMessage
	}
	e.UpdatedAt = now
}
