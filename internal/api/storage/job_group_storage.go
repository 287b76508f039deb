package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jobflowhq/jobflow/internal/domain"
)

func (s *Storage) CreateJobGroup(ctx context.Context, group *domain.JobGroup) error {
	query := `
		INSERT INTO job_groups (
			group_id, name, description, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		group.GroupID,
		group.Name,
		group.Description,
		group.IsActive,
		group.CreatedAt,
		group.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job group: %w", err)
	}

	return nil
}

func (s *Storage) GetJobGroup(ctx context.Context, groupID string) (*domain.JobGroup, error) {
	var group domain.JobGroup
	query := `
		SELECT group_id, name, description, is_active, created_at, updated_at
		FROM job_groups
		WHERE group_id = $1
	`

	err := s.db.GetContext(ctx, &group, query, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobGroupNotFound
		}
		return nil, fmt.Errorf("failed to get job group: %w", err)
	}

	return &group, nil
}

func (s *Storage) ListJobGroups(ctx context.Context) ([]domain.JobGroup, error) {
	query := `
		SELECT group_id, name, description, is_active, created_at, updated_at
		FROM job_groups
		ORDER BY created_at DESC, group_id DESC
	`

	var groups []domain.JobGroup
	err := s.db.SelectContext(ctx, &groups, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list job groups: %w", err)
	}

	return groups, nil
}

// DeactivateJobGroup soft-disables a group. Its jobs stop being eligible
// for new runs but history stays intact.
func (s *Storage) DeactivateJobGroup(ctx context.Context, groupID string) error {
	query := `
		UPDATE job_groups
		SET is_active = false, updated_at = NOW()
		WHERE group_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, groupID)
	if err != nil {
		return fmt.Errorf("failed to deactivate job group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrJobGroupNotFound
	}

	return nil
}
