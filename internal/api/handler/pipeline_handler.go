package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/pipeline"
)

// RunPipeline handles POST /api/v1/pipelines/api-upload
// Builds the built-in fetch/file/compress/upload job from the request,
// persists it, and enqueues an execution in one shot.
func (h *Handler) RunPipeline(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job, err := pipeline.Build(h.pipelineBase, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create pipeline job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create pipeline job",
		})
		return
	}

	exec := domain.NewJobExecution(job.JobID, len(job.ActiveTasks()))
	if err := h.store.CreateExecution(c.Request.Context(), exec); err != nil {
		h.logger.Error("Failed to create execution", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create execution",
		})
		return
	}

	if err := h.enqueueExecution(c, exec); err != nil {
		return
	}

	h.logger.Info("Pipeline enqueued",
		slog.String("job_id", job.JobID),
		slog.String("execution_id", exec.ExecutionID),
		slog.String("name", job.Name),
	)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":       job.JobID,
		"execution_id": exec.ExecutionID,
		"status":       exec.Status,
		"total_tasks":  exec.TotalTasks,
	})
}
