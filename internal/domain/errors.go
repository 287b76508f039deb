package domain

import "errors"

var (
	// ErrJobGroupNotFound is returned when a job group cannot be found in the database
	ErrJobGroupNotFound = errors.New("job group not found")

	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrExecutionNotFound is returned when an execution cannot be found in the database
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionAlreadyClaimed is returned when attempting to claim an execution that's already claimed
	ErrExecutionAlreadyClaimed = errors.New("execution already claimed or not in PENDING status")

	// ErrUnknownTaskType is returned by a registry miss; the task fails
	// immediately and is never retried
	ErrUnknownTaskType = errors.New("unknown task type")
)

// ValidationError reports a malformed task configuration. It is detected
// before execution and never retried.
type ValidationError struct {
	TaskType string
	Reason   string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.TaskType + " config: " + e.Reason
}

// NewValidationError creates a validation error for the given task type.
func NewValidationError(taskType, reason string) error {
	return &ValidationError{TaskType: taskType, Reason: reason}
}

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
