package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobflowhq/jobflow/internal/api/dto"
	"github.com/jobflowhq/jobflow/internal/api/storage"
	"github.com/jobflowhq/jobflow/internal/domain"
)

// CreateJob handles POST /api/v1/jobs
// Creates a job definition together with its ordered tasks.
func (h *Handler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.GroupID != "" {
		if _, err := h.store.GetJobGroup(c.Request.Context(), req.GroupID); err != nil {
			if errors.Is(err, domain.ErrJobGroupNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"error": "Job group not found",
				})
				return
			}
			h.logger.Error("Failed to look up job group", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create job",
			})
			return
		}
	}

	now := time.Now()
	job := domain.Job{
		JobID:          uuid.New().String(),
		GroupID:        req.GroupID,
		Name:           req.Name,
		JobType:        req.JobType,
		ExecutionOrder: req.ExecutionOrder,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	job.Tasks = make([]domain.JobTask, len(req.Tasks))
	for i, t := range req.Tasks {
		job.Tasks[i] = domain.JobTask{
			TaskID:            uuid.New().String(),
			JobID:             job.JobID,
			Name:              t.Name,
			TaskType:          t.TaskType,
			Config:            t.Config,
			ExecutionOrder:    t.ExecutionOrder,
			MaxRetries:        t.MaxRetries,
			TimeoutSeconds:    t.TimeoutSeconds,
			ContinueOnFailure: t.ContinueOnFailure,
			IsActive:          true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}

	if err := h.store.CreateJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	h.logger.Info("Job created",
		slog.String("job_id", job.JobID),
		slog.String("name", job.Name),
		slog.Int("task_count", len(job.Tasks)),
	)

	c.JSON(http.StatusCreated, toJobDTO(&job, true))
}

// GetJob handles GET /api/v1/jobs/:job_id
// Retrieves a job definition with its tasks.
func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.GetJobWithTasks(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job, true))
}

// ListJobs handles GET /api/v1/jobs
// Lists job definitions with optional filtering and keyset pagination.
func (h *Handler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		GroupID:  req.GroupID,
		JobType:  req.JobType,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = toJobDTO(&jobs[i], false)
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeCursor(&storage.Cursor{
			CreatedAt: lastJob.CreatedAt,
			ID:        lastJob.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

func toJobDTO(job *domain.Job, withTasks bool) dto.JobDTO {
	out := dto.JobDTO{
		JobID:          job.JobID,
		GroupID:        job.GroupID,
		Name:           job.Name,
		JobType:        job.JobType,
		ExecutionOrder: job.ExecutionOrder,
		IsActive:       job.IsActive,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
	}

	if withTasks {
		out.Tasks = make([]dto.TaskDTO, len(job.Tasks))
		for i, t := range job.Tasks {
			out.Tasks[i] = dto.TaskDTO{
				TaskID:            t.TaskID,
				Name:              t.Name,
				TaskType:          t.TaskType,
				Config:            t.Config,
				ExecutionOrder:    t.ExecutionOrder,
				MaxRetries:        t.MaxRetries,
				TimeoutSeconds:    t.TimeoutSeconds,
				ContinueOnFailure: t.ContinueOnFailure,
				IsActive:          t.IsActive,
			}
		}
	}

	return out
}
