package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobflowhq/jobflow/internal/domain"
)

// ExecutionSink persists the execution record at creation and again at
// each terminal transition. Persistence is fire-and-forget relative to the
// run's control flow: a sink failure is logged, never conflated with a
// task failure.
type ExecutionSink interface {
	SaveExecution(ctx context.Context, exec *domain.JobExecution) error
}

// ProgressObserver receives progress updates as the run advances. Delivery
// is best-effort; implementations must return promptly and never block.
type ProgressObserver interface {
	OnProgress(executionID string, taskIndex, percentage int)
}

// OrchestratorConfig holds orchestrator dependencies.
type OrchestratorConfig struct {
	Logger   *slog.Logger
	Registry *Registry
	Executor *Executor
	Sink     ExecutionSink
	Observer ProgressObserver
}

// Orchestrator executes a job's tasks as a strictly sequential pipeline,
// maintains the execution record, and decides continue-vs-abort on task
// failure. One orchestrator instance may run many jobs concurrently; each
// run owns its execution record exclusively.
type Orchestrator struct {
	logger   *slog.Logger
	registry *Registry
	executor *Executor
	sink     ExecutionSink
	observer ProgressObserver
}

// NewOrchestrator creates an orchestrator. Sink and Observer are optional.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		logger:   cfg.Logger,
		registry: cfg.Registry,
		executor: cfg.Executor,
		sink:     cfg.Sink,
		observer: cfg.Observer,
	}
}

// ExecuteJob creates a fresh execution record for the job and runs it.
// A nil job is a programming error and is surfaced to the caller; every
// business-level failure is communicated through the returned execution's
// status instead.
func (o *Orchestrator) ExecuteJob(ctx context.Context, job *domain.Job) (*domain.JobExecution, error) {
	if job == nil {
		return nil, errors.New("nil job definition")
	}
	exec := domain.NewJobExecution(job.JobID, len(job.ActiveTasks()))
	return o.Run(ctx, job, exec)
}

// Run executes the job against a caller-supplied PENDING execution record
// (created ahead of time by the trigger path so its ID is known before the
// run starts). The record is mutated only by this call and frozen once a
// terminal status is reached.
func (o *Orchestrator) Run(ctx context.Context, job *domain.Job, exec *domain.JobExecution) (*domain.JobExecution, error) {
	if job == nil || exec == nil {
		return nil, errors.New("nil job definition or execution record")
	}

	tasks := job.ActiveTasks()
	exec.TotalTasks = len(tasks)
	exec.MarkRunning()
	o.persist(ctx, exec)

	o.logger.Info("Job execution started",
		slog.String("execution_id", exec.ExecutionID),
		slog.String("job_id", job.JobID),
		slog.String("job", job.Name),
		slog.Int("total_tasks", exec.TotalTasks),
	)

	artifacts := NewArtifacts()

	for i := range tasks {
		if ctx.Err() != nil {
			exec.MarkCanceled()
			break
		}

		task := &tasks[i]
		handler, err := o.registry.Resolve(task.TaskType)
		if err != nil {
			exec.AdvanceTask()
			o.notifyProgress(exec)
			o.failTask(exec, task, fmt.Errorf("%w: %s", err, task.TaskType))
			if exec.IsTerminal() {
				break
			}
			continue
		}

		outcome := o.executor.Run(ctx, task, handler, artifacts)
		exec.AdvanceTask()
		o.notifyProgress(exec)

		switch outcome.Result {
		case TaskSucceeded:
			o.logger.Info("Task completed",
				slog.String("execution_id", exec.ExecutionID),
				slog.String("task", task.Name),
				slog.Int("attempts", outcome.Attempts),
				slog.Int("progress", exec.ProgressPercentage),
			)

		case TaskCanceled:
			exec.MarkCanceled()

		case TaskFailed:
			o.failTask(exec, task, outcome.Err)
		}

		if exec.IsTerminal() {
			break
		}
	}

	if !exec.IsTerminal() {
		exec.MarkCompleted()
	}

	// The run context may already be canceled; the terminal record must
	// still reach the sink.
	o.persist(context.WithoutCancel(ctx), exec)

	o.logger.Info("Job execution finished",
		slog.String("execution_id", exec.ExecutionID),
		slog.String("job_id", job.JobID),
		slog.String("status", exec.Status),
		slog.Int("current_task_index", exec.CurrentTaskIndex),
		slog.Int64("duration_ms", exec.DurationMs),
	)

	return exec, nil
}

// failTask applies the per-task failure policy: abort the pipeline by
// default, continue when the task explicitly opted in.
func (o *Orchestrator) failTask(exec *domain.JobExecution, task *domain.JobTask, cause error) {
	msg := "task failed"
	if cause != nil {
		msg = cause.Error()
	}

	if task.ContinueOnFailure {
		o.logger.Warn("Task failed, continuing per task policy",
			slog.String("execution_id", exec.ExecutionID),
			slog.String("task", task.Name),
			slog.String("error", msg),
		)
		return
	}

	o.logger.Error("Task failed, aborting remaining tasks",
		slog.String("execution_id", exec.ExecutionID),
		slog.String("task", task.Name),
		slog.String("error", msg),
	)
	exec.MarkFailed(fmt.Sprintf("task %s failed: %s", task.Name, msg))
}

// persist saves the execution record; sink failures are logged only.
func (o *Orchestrator) persist(ctx context.Context, exec *domain.JobExecution) {
	if o.sink == nil {
		return
	}
	if err := o.sink.SaveExecution(ctx, exec); err != nil {
		o.logger.Error("Failed to persist execution record",
			slog.String("execution_id", exec.ExecutionID),
			slog.String("error", err.Error()),
		)
	}
}

// notifyProgress delivers a best-effort progress update. A misbehaving
// observer cannot break the run.
func (o *Orchestrator) notifyProgress(exec *domain.JobExecution) {
	if o.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("Progress observer panicked",
				slog.String("execution_id", exec.ExecutionID),
				slog.Any("panic", r),
			)
		}
	}()
	o.observer.OnProgress(exec.ExecutionID, exec.CurrentTaskIndex, exec.ProgressPercentage)
}
