package domain

import (
	"sort"
	"time"
)

const (
	// DefaultMaxRetries is applied when a task does not set max_retries.
	DefaultMaxRetries = 3

	// DefaultTimeoutSeconds is applied when a task does not set timeout_seconds.
	DefaultTimeoutSeconds = 300
)

// JobGroup is a named container that owns an ordered collection of jobs.
// Deactivation is a soft flag; groups are never auto-deleted.
type JobGroup struct {
	GroupID     string    `db:"group_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	Jobs []Job `db:"-"`
}

// Job is an ordered sequence of tasks executed as one pipeline run.
// ExecutionOrder values need not be unique or contiguous; consumers sort
// by this field with insertion order breaking ties.
type Job struct {
	JobID          string    `db:"job_id"`
	GroupID        string    `db:"group_id"`
	Name           string    `db:"name"`
	JobType        string    `db:"job_type"`
	ExecutionOrder int       `db:"execution_order"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`

	Tasks []JobTask `db:"-"`
}

// ActiveTasks returns the job's active tasks sorted by execution order.
// The sort is stable so tasks with equal order keep their insertion sequence.
func (j *Job) ActiveTasks() []JobTask {
	tasks := make([]JobTask, 0, len(j.Tasks))
	for _, t := range j.Tasks {
		if t.IsActive {
			tasks = append(tasks, t)
		}
	}
	sort.SliceStable(tasks, func(a, b int) bool {
		return tasks[a].ExecutionOrder < tasks[b].ExecutionOrder
	})
	return tasks
}

// JobTask is one typed, configurable unit of work inside a job.
// Config is an opaque, handler-specific blob; only the task's handler
// validates it.
type JobTask struct {
	TaskID            string    `db:"task_id"`
	JobID             string    `db:"job_id"`
	Name              string    `db:"name"`
	TaskType          string    `db:"task_type"`
	Config            string    `db:"config"`
	ExecutionOrder    int       `db:"execution_order"`
	MaxRetries        int       `db:"max_retries"`
	TimeoutSeconds    int       `db:"timeout_seconds"`
	ContinueOnFailure bool      `db:"continue_on_failure"`
	IsActive          bool      `db:"is_active"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// EffectiveMaxRetries returns the task's retry budget, falling back to
// DefaultMaxRetries when unset. Negative values mean no retries.
func (t *JobTask) EffectiveMaxRetries() int {
	if t.MaxRetries == 0 {
		return DefaultMaxRetries
	}
	if t.MaxRetries < 0 {
		return 0
	}
	return t.MaxRetries
}

// EffectiveTimeout returns the per-attempt deadline, falling back to
// DefaultTimeoutSeconds when unset.
func (t *JobTask) EffectiveTimeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}
