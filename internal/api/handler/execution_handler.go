package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobflowhq/jobflow/internal/api/dto"
	"github.com/jobflowhq/jobflow/internal/api/storage"
	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/messaging"
)

// TriggerExecution handles POST /api/v1/jobs/:job_id/executions
// Creates a PENDING execution row and enqueues it for a worker.
func (h *Handler) TriggerExecution(c *gin.Context) {
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
			"error": "Failed to trigger execution",
		})
		return
	}

	if !job.IsActive {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Job is inactive",
		})
		return
	}

	exec := domain.NewJobExecution(job.JobID, len(job.ActiveTasks()))
	if err := h.store.CreateExecution(c.Request.Context(), exec); err != nil {
		h.logger.Error("Failed to create execution", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to trigger execution",
		})
		return
	}

	if err := h.enqueueExecution(c, exec); err != nil {
		return
	}

	h.logger.Info("Execution enqueued",
		slog.String("execution_id", exec.ExecutionID),
		slog.String("job_id", job.JobID),
		slog.Int("total_tasks", exec.TotalTasks),
	)

	c.JSON(http.StatusAccepted, toExecutionDTO(exec))
}

// enqueueExecution publishes the run message. On failure it writes the
// error response itself and returns a non-nil error so the caller stops.
func (h *Handler) enqueueExecution(c *gin.Context, exec *domain.JobExecution) error {
	body, err := json.Marshal(messaging.RunMessage{
		ExecutionID: exec.ExecutionID,
		JobID:       exec.JobID,
	})
	if err != nil {
		h.logger.Error("Failed to marshal run message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to trigger execution",
		})
		return err
	}

	if err := h.publisher.PublishWithRetry(c.Request.Context(), body, messaging.ContentTypeJSON); err != nil {
		h.logger.Error("Failed to publish run message",
			slog.String("execution_id", exec.ExecutionID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue execution",
		})
		return err
	}

	return nil
}

// GetExecution handles GET /api/v1/executions/:execution_id
func (h *Handler) GetExecution(c *gin.Context) {
	executionID := c.Param("execution_id")
	if _, err := uuid.Parse(executionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "execution_id must be a valid UUID",
		})
		return
	}

	exec, err := h.store.GetExecution(c.Request.Context(), executionID)
	if err != nil {
		if errors.Is(err, domain.ErrExecutionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Execution not found",
			})
			return
		}
		h.logger.Error("Failed to get execution", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get execution",
		})
		return
	}

	c.JSON(http.StatusOK, toExecutionDTO(exec))
}

// ListExecutions handles GET /api/v1/executions
func (h *Handler) ListExecutions(c *gin.Context) {
	var req dto.ListExecutionsRequest
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

	filter := storage.ExecutionFilter{
		JobID:    req.JobID,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	executions, err := h.store.ListExecutions(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list executions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list executions",
		})
		return
	}

	hasMore := len(executions) > req.PageSize
	if hasMore {
		executions = executions[:req.PageSize]
	}

	executionResponse := make([]dto.ExecutionDTO, len(executions))
	for i := range executions {
		executionResponse[i] = toExecutionDTO(&executions[i])
	}

	var nextCursor string
	if hasMore {
		last := executions[len(executions)-1]
		nextCursor = EncodeCursor(&storage.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ExecutionID,
		})
	}

	c.JSON(http.StatusOK, dto.ListExecutionsResponse{
		Executions: executionResponse,
		NextCursor: nextCursor,
	})
}

// CancelExecution handles POST /api/v1/executions/:execution_id/cancel
// A PENDING execution is canceled directly in the database; a RUNNING one
// is signaled over the broadcast exchange to whichever worker holds it.
func (h *Handler) CancelExecution(c *gin.Context) {
	executionID := c.Param("execution_id")
	if _, err := uuid.Parse(executionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "execution_id must be a valid UUID",
		})
		return
	}

	exec, err := h.store.GetExecution(c.Request.Context(), executionID)
	if err != nil {
		if errors.Is(err, domain.ErrExecutionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Execution not found",
			})
			return
		}
		h.logger.Error("Failed to get execution", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel execution",
		})
		return
	}

	if exec.IsTerminal() {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Execution already finished",
			"status": exec.Status,
		})
		return
	}

	canceled, err := h.store.CancelPendingExecution(c.Request.Context(), executionID)
	if err != nil {
		h.logger.Error("Failed to cancel execution", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel execution",
		})
		return
	}

	if canceled {
		h.logger.Info("Pending execution canceled", slog.String("execution_id", executionID))
		c.JSON(http.StatusAccepted, gin.H{
			"execution_id": executionID,
			"status":       domain.ExecutionStatusCanceled,
		})
		return
	}

	// Already claimed by a worker; broadcast so the holder cancels it.
	body, err := json.Marshal(messaging.CancelMessage{ExecutionID: executionID})
	if err != nil {
		h.logger.Error("Failed to marshal cancel message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel execution",
		})
		return
	}

	if err := h.publisher.PublishBroadcast(c.Request.Context(), body, messaging.ContentTypeJSON); err != nil {
		h.logger.Error("Failed to broadcast cancel message",
			slog.String("execution_id", executionID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel execution",
		})
		return
	}

	h.logger.Info("Cancellation broadcast", slog.String("execution_id", executionID))
	c.JSON(http.StatusAccepted, gin.H{
		"execution_id": executionID,
		"status":       exec.Status,
	})
}

func toExecutionDTO(exec *domain.JobExecution) dto.ExecutionDTO {
	out := dto.ExecutionDTO{
		ExecutionID:        exec.ExecutionID,
		JobID:              exec.JobID,
		Status:             exec.Status,
		DurationMs:         exec.DurationMs,
		CurrentTaskIndex:   exec.CurrentTaskIndex,
		TotalTasks:         exec.TotalTasks,
		ProgressPercentage: exec.ProgressPercentage,
		ErrorMessage:       exec.ErrorMessage,
		CreatedAt:          exec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          exec.UpdatedAt.Format(time.RFC3339),
	}

	if exec.StartedAt != nil {
		out.StartedAt = exec.StartedAt.Format(time.RFC3339)
	}
	if exec.CompletedAt != nil {
		out.CompletedAt = exec.CompletedAt.Format(time.RFC3339)
	}

	return out
}
