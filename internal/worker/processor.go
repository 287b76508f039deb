package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/messaging"
)

// processExecution claims the execution, loads the job definition, and
// hands both to the orchestrator. A nil return means the message is done
// regardless of the run's outcome; task failures live on the execution
// record, not the queue.
func (w *Worker) processExecution(ctx context.Context, msg messaging.RunMessage) error {
	w.logger.Info("Processing execution",
		slog.String("execution_id", msg.ExecutionID),
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	// Claim the execution (PENDING -> RUNNING). Exactly one worker wins.
	exec, err := w.storage.ClaimExecution(ctx, msg.ExecutionID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrExecutionAlreadyClaimed) {
			w.logger.Warn("Execution already claimed, skipping",
				slog.String("execution_id", msg.ExecutionID),
			)
			return fmt.Errorf("execution already claimed: %w", err)
		}
		w.logger.Error("Failed to claim execution",
			slog.String("execution_id", msg.ExecutionID),
			slog.String("error", err.Error()),
		)
		// Database errors are likely transient
		return domain.NewRetryableError(fmt.Errorf("failed to claim execution: %w", err))
	}

	job, err := w.storage.GetJobWithTasks(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			w.logger.Error("Job definition missing for claimed execution",
				slog.String("execution_id", msg.ExecutionID),
				slog.String("job_id", msg.JobID),
			)
			exec.MarkFailed("job definition not found")
			if saveErr := w.storage.SaveExecution(ctx, exec); saveErr != nil {
				w.logger.Error("Failed to persist failed execution",
					slog.String("execution_id", exec.ExecutionID),
					slog.String("error", saveErr.Error()),
				)
			}
			return fmt.Errorf("job %s: %w", msg.JobID, err)
		}
		return domain.NewRetryableError(fmt.Errorf("failed to load job: %w", err))
	}

	// Give the run its own cancelable context and expose the cancel func
	// to the broadcast listener for the duration of the run.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.registerCancel(exec.ExecutionID, cancel)
	defer w.unregisterCancel(exec.ExecutionID)

	result, err := w.orchestrator.Run(runCtx, job, exec)
	if err != nil {
		return domain.NewRetryableError(fmt.Errorf("orchestrator run failed: %w", err))
	}

	w.logger.Info("Execution finished",
		slog.String("execution_id", result.ExecutionID),
		slog.String("status", result.Status),
		slog.Int64("duration_ms", result.DurationMs),
		slog.Int("progress", result.ProgressPercentage),
	)

	return nil
}
