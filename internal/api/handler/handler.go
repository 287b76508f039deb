package handler

import (
	"context"
	"log/slog"

	"github.com/jobflowhq/jobflow/internal/api/storage"
	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/pipeline"
)

// Store is the persistence surface the handlers depend on.
type Store interface {
	CreateJobGroup(ctx context.Context, group *domain.JobGroup) error
	GetJobGroup(ctx context.Context, groupID string) (*domain.JobGroup, error)
	ListJobGroups(ctx context.Context) ([]domain.JobGroup, error)
	DeactivateJobGroup(ctx context.Context, groupID string) error

	CreateJob(ctx context.Context, job *domain.Job) error
	GetJobWithTasks(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]domain.Job, error)

	CreateExecution(ctx context.Context, exec *domain.JobExecution) error
	GetExecution(ctx context.Context, executionID string) (*domain.JobExecution, error)
	ListExecutions(ctx context.Context, filter storage.ExecutionFilter) ([]domain.JobExecution, error)
	CancelPendingExecution(ctx context.Context, executionID string) (bool, error)
}

// Publisher is the queue surface the handlers depend on.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
	PublishBroadcast(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        Store
	Publisher    Publisher
	PipelineBase pipeline.Base
}

// Handler handles all HTTP requests of the API service
type Handler struct {
	logger       *slog.Logger
	store        Store
	publisher    Publisher
	pipelineBase pipeline.Base
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	return &Handler{
		logger:       deps.Logger,
		store:        deps.Store,
		publisher:    deps.Publisher,
		pipelineBase: deps.PipelineBase,
	}
}
