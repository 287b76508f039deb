package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobflowhq/jobflow/internal/domain"
)

// TaskResult is the terminal outcome of a single task run.
type TaskResult int

const (
	// TaskSucceeded means an attempt completed within its deadline and
	// reported success.
	TaskSucceeded TaskResult = iota

	// TaskFailed means every attempt failed, the config was invalid, or
	// no handler was found for the task type.
	TaskFailed

	// TaskCanceled means external cancellation aborted the run. It is a
	// distinct outcome, never counted as a failure for retry purposes.
	TaskCanceled
)

// String returns the result name for logging.
func (r TaskResult) String() string {
	switch r {
	case TaskSucceeded:
		return "SUCCEEDED"
	case TaskFailed:
		return "FAILED"
	case TaskCanceled:
		return "CANCELED"
	}
	return "UNKNOWN"
}

// Outcome carries a task run's result, the number of attempts made, and
// the last error observed.
type Outcome struct {
	Result   TaskResult
	Attempts int
	Err      error
}

// Executor runs a single task: it validates the config, applies the
// per-attempt deadline, retries failures up to the task's retry budget
// with a backoff delay between attempts, and reports the outcome.
type Executor struct {
	backoff BackoffStrategy
	logger  *slog.Logger
}

// NewExecutor creates a task executor. A nil backoff selects the engine
// default.
func NewExecutor(backoff BackoffStrategy, logger *slog.Logger) *Executor {
	if backoff == nil {
		backoff = DefaultBackoff()
	}
	return &Executor{
		backoff: backoff,
		logger:  logger,
	}
}

// Run executes the task through the given handler. A task with
// max_retries=N is attempted at most 1+N times; validation errors are
// never retried. Cancellation of ctx aborts the current attempt and any
// pending retry delay immediately.
func (e *Executor) Run(ctx context.Context, task *domain.JobTask, handler Handler, artifacts *Artifacts) Outcome {
	if err := handler.Validate(task.Config); err != nil {
		e.logger.Error("Task config validation failed",
			slog.String("task", task.Name),
			slog.String("task_type", task.TaskType),
			slog.String("error", err.Error()),
		)
		return Outcome{Result: TaskFailed, Err: err}
	}

	maxRetries := task.EffectiveMaxRetries()
	timeout := task.EffectiveTimeout()

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := e.runAttempt(ctx, task, handler, artifacts, timeout)
		if err == nil {
			return Outcome{Result: TaskSucceeded, Attempts: attempt}
		}

		if ctx.Err() != nil {
			e.logger.Info("Task canceled",
				slog.String("task", task.Name),
				slog.Int("attempt", attempt),
			)
			return Outcome{Result: TaskCanceled, Attempts: attempt, Err: ctx.Err()}
		}

		lastErr = err
		e.logger.Warn("Task attempt failed",
			slog.String("task", task.Name),
			slog.String("task_type", task.TaskType),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxRetries),
			slog.String("error", err.Error()),
		)

		if attempt > maxRetries {
			return Outcome{Result: TaskFailed, Attempts: attempt, Err: lastErr}
		}

		select {
		case <-time.After(e.backoff.Delay(attempt)):
		case <-ctx.Done():
			return Outcome{Result: TaskCanceled, Attempts: attempt, Err: ctx.Err()}
		}
	}
}

// runAttempt performs one attempt under the task's deadline. The handler
// call is driven through the step state machine so a panicking handler
// becomes a failure, never an escaped fault.
func (e *Executor) runAttempt(ctx context.Context, task *domain.JobTask, handler Handler, artifacts *Artifacts, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var execErr error
	step := domain.NewStep(task.Name)
	step.Execute = func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				execErr = fmt.Errorf("handler panic: %v", r)
				ok = false
			}
		}()
		if err := handler.Execute(attemptCtx, task.Config, artifacts); err != nil {
			execErr = err
			return false
		}
		return true
	}

	done := make(chan bool, 1)
	go func() {
		done <- RunStep(step)
	}()

	select {
	case ok := <-done:
		if ok {
			return nil
		}
		if execErr == nil {
			execErr = errors.New("handler reported failure")
		}
		return execErr

	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("attempt timed out after %s: %w", timeout, attemptCtx.Err())
	}
}
