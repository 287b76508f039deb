package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jobflowhq/jobflow/internal/domain"
)

// CreateExecution inserts a fresh PENDING execution row. The worker that
// claims it owns every later mutation.
func (s *Storage) CreateExecution(ctx context.Context, exec *domain.JobExecution) error {
	query := `
		INSERT INTO job_executions (
			execution_id, job_id, status,
			current_task_index, total_tasks, progress_percentage,
			error_message, created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		exec.ExecutionID,
		exec.JobID,
		exec.Status,
		exec.CurrentTaskIndex,
		exec.TotalTasks,
		exec.ProgressPercentage,
		exec.ErrorMessage,
		exec.CreatedAt,
		exec.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

func (s *Storage) GetExecution(ctx context.Context, executionID string) (*domain.JobExecution, error) {
	var exec domain.JobExecution
	query := `
		SELECT execution_id, job_id, status,
		       started_at, completed_at, duration_ms,
		       current_task_index, total_tasks, progress_percentage,
		       COALESCE(error_message, '') AS error_message,
		       created_at, updated_at
		FROM job_executions
		WHERE execution_id = $1
	`

	err := s.db.GetContext(ctx, &exec, query, executionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	return &exec, nil
}

type ExecutionFilter struct {
	JobID    string
	Status   string
	PageSize int
	Cursor   *Cursor
}

func (s *Storage) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]domain.JobExecution, error) {
	query := `
        SELECT execution_id, job_id, status,
               started_at, completed_at, duration_ms,
               current_task_index, total_tasks, progress_percentage,
               COALESCE(error_message, '') AS error_message,
               created_at, updated_at
        FROM job_executions
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	if filter.JobID != "" {
		query += fmt.Sprintf(" AND job_id = $%d", argIdx)
		args = append(args, filter.JobID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, execution_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, execution_id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var executions []domain.JobExecution
	err := s.db.SelectContext(ctx, &executions, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// CancelPendingExecution flips a PENDING execution straight to CANCELED.
// Returns false when the execution was already picked up by a worker, in
// which case cancellation travels over the broadcast exchange instead.
func (s *Storage) CancelPendingExecution(ctx context.Context, executionID string) (bool, error) {
	query := `
		UPDATE job_executions
		SET status = $1,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE execution_id = $2
		  AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.ExecutionStatusCanceled, executionID, domain.ExecutionStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to cancel execution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}
