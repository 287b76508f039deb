// Package storage implements the worker's persistence layer: claiming
// executions, loading job definitions, and recording run state. It backs
// the engine's ExecutionSink and ProgressObserver.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jobflowhq/jobflow/internal/domain"
)

// progressUpdateTimeout bounds each best-effort progress write.
const progressUpdateTimeout = 2 * time.Second

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimExecution claims a PENDING execution using optimistic locking.
// Exactly one worker wins; the rest get ErrExecutionAlreadyClaimed.
func (s *Storage) ClaimExecution(ctx context.Context, executionID, workerID string) (*domain.JobExecution, error) {
	query := `
		UPDATE job_executions
		SET status = $1,
		    worker_id = $2,
		    started_at = NOW(),
		    updated_at = NOW()
		WHERE execution_id = $3
		  AND status = $4
		RETURNING execution_id, job_id, status, started_at,
		          current_task_index, total_tasks, progress_percentage,
		          created_at, updated_at
	`

	var exec domain.JobExecution
	err := s.db.QueryRowContext(ctx, query,
		domain.ExecutionStatusRunning, workerID, executionID, domain.ExecutionStatusPending,
	).Scan(
		&exec.ExecutionID,
		&exec.JobID,
		&exec.Status,
		&exec.StartedAt,
		&exec.CurrentTaskIndex,
		&exec.TotalTasks,
		&exec.ProgressPercentage,
		&exec.CreatedAt,
		&exec.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim execution - already claimed or not found",
				slog.String("execution_id", executionID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrExecutionAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim execution: %w", err)
	}

	s.logger.Info("Execution claimed",
		slog.String("execution_id", executionID),
		slog.String("worker_id", workerID),
	)

	return &exec, nil
}

// getJobQuery selects one job row. group_id is a uuid column, so it must
// be cast to text before coalescing with the '' default; without the cast
// Postgres unifies the literal to uuid and rejects the statement at parse
// time.
const getJobQuery = `
	SELECT job_id, COALESCE(group_id::text, '') AS group_id, name, job_type,
	       execution_order, is_active, created_at, updated_at
	FROM jobs
	WHERE job_id = $1
`

// GetJobWithTasks loads the job definition and all of its tasks.
func (s *Storage) GetJobWithTasks(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job

	err := s.db.GetContext(ctx, &job, getJobQuery, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	taskQuery := `
		SELECT task_id, job_id, name, task_type, config,
		       execution_order, max_retries, timeout_seconds,
		       continue_on_failure, is_active, created_at, updated_at
		FROM job_tasks
		WHERE job_id = $1
		ORDER BY execution_order ASC, created_at ASC
	`

	err = s.db.SelectContext(ctx, &job.Tasks, taskQuery, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job tasks: %w", err)
	}

	return &job, nil
}

// SaveExecution writes the execution's full run state. The status guard
// keeps a live run from resurrecting a row the API canceled while the
// worker was between checkpoints: only the owning run's transitions out
// of RUNNING land, and a terminal row is never overwritten.
func (s *Storage) SaveExecution(ctx context.Context, exec *domain.JobExecution) error {
	query := `
		UPDATE job_executions
		SET status = $1,
		    completed_at = $2,
		    duration_ms = $3,
		    current_task_index = $4,
		    total_tasks = $5,
		    progress_percentage = $6,
		    error_message = $7,
		    updated_at = NOW()
		WHERE execution_id = $8
		  AND status IN ($9, $10)
	`

	var completedAt interface{}
	if exec.CompletedAt != nil {
		completedAt = *exec.CompletedAt
	}

	result, err := s.db.ExecContext(ctx, query,
		exec.Status,
		completedAt,
		exec.DurationMs,
		exec.CurrentTaskIndex,
		exec.TotalTasks,
		exec.ProgressPercentage,
		exec.ErrorMessage,
		exec.ExecutionID,
		domain.ExecutionStatusPending,
		domain.ExecutionStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		s.logger.Warn("Execution save skipped - row already terminal",
			slog.String("execution_id", exec.ExecutionID),
			slog.String("status", exec.Status),
		)
	}

	return nil
}

// OnProgress persists a progress checkpoint. It implements the engine's
// ProgressObserver; failures are logged and swallowed so a slow or broken
// database write never affects the run.
func (s *Storage) OnProgress(executionID string, taskIndex, percentage int) {
	ctx, cancel := context.WithTimeout(context.Background(), progressUpdateTimeout)
	defer cancel()

	query := `
		UPDATE job_executions
		SET current_task_index = $1,
		    progress_percentage = $2,
		    updated_at = NOW()
		WHERE execution_id = $3
		  AND status = $4
	`

	_, err := s.db.ExecContext(ctx, query, taskIndex, percentage, executionID, domain.ExecutionStatusRunning)
	if err != nil {
		s.logger.Warn("Failed to persist progress update",
			slog.String("execution_id", executionID),
			slog.Int("task_index", taskIndex),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Debug("Progress updated",
		slog.String("execution_id", executionID),
		slog.Int("task_index", taskIndex),
		slog.Int("percentage", percentage),
	)
}
