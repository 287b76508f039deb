package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jobflowhq/jobflow/internal/domain"
)

// CreateJob inserts the job and all of its tasks in a single transaction.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	jobQuery := `
		INSERT INTO jobs (
			job_id, group_id, name, job_type,
			execution_order, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)
	`

	_, err = tx.ExecContext(
		ctx,
		jobQuery,
		job.JobID,
		nullableString(job.GroupID),
		job.Name,
		job.JobType,
		job.ExecutionOrder,
		job.IsActive,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	taskQuery := `
		INSERT INTO job_tasks (
			task_id, job_id, name, task_type, config,
			execution_order, max_retries, timeout_seconds,
			continue_on_failure, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12
		)
	`

	for _, task := range job.Tasks {
		_, err = tx.ExecContext(
			ctx,
			taskQuery,
			task.TaskID,
			task.JobID,
			task.Name,
			task.TaskType,
			task.Config,
			task.ExecutionOrder,
			task.MaxRetries,
			task.TimeoutSeconds,
			task.ContinueOnFailure,
			task.IsActive,
			task.CreatedAt,
			task.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create job task %s: %w", task.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job transaction: %w", err)
	}

	return nil
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

// GetJobWithTasks loads a job and all of its tasks, active or not.
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

type JobFilter struct {
	GroupID  string
	JobType  string
	PageSize int
	Cursor   *Cursor
}

// listJobsQuery is the base of the job listing; filters and the pagination
// clause are appended. The group_id cast mirrors getJobQuery.
const listJobsQuery = `
	SELECT job_id, COALESCE(group_id::text, '') AS group_id, name, job_type,
	       execution_order, is_active, created_at, updated_at
	FROM jobs
	WHERE 1=1
`

func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := listJobsQuery
	args := []interface{}{}
	argIdx := 1

	// Filters
	if filter.GroupID != "" {
		query += fmt.Sprintf(" AND group_id = $%d", argIdx)
		args = append(args, filter.GroupID)
		argIdx++
	}

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// nullableString maps "" to NULL for optional foreign keys.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
