package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobflowhq/jobflow/internal/api/dto"
	"github.com/jobflowhq/jobflow/internal/domain"
)

// CreateJobGroup handles POST /api/v1/job-groups
func (h *Handler) CreateJobGroup(c *gin.Context) {
	var req dto.CreateJobGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	now := time.Now()
	group := domain.JobGroup{
		GroupID:     uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.CreateJobGroup(c.Request.Context(), &group); err != nil {
		h.logger.Error("Failed to create job group", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job group",
		})
		return
	}

	h.logger.Info("Job group created",
		slog.String("group_id", group.GroupID),
		slog.String("name", group.Name),
	)

	c.JSON(http.StatusCreated, toJobGroupDTO(&group))
}

// GetJobGroup handles GET /api/v1/job-groups/:group_id
func (h *Handler) GetJobGroup(c *gin.Context) {
	groupID := c.Param("group_id")
	if _, err := uuid.Parse(groupID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "group_id must be a valid UUID",
		})
		return
	}

	group, err := h.store.GetJobGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, domain.ErrJobGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job group not found",
			})
			return
		}
		h.logger.Error("Failed to get job group", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job group",
		})
		return
	}

	c.JSON(http.StatusOK, toJobGroupDTO(group))
}

// ListJobGroups handles GET /api/v1/job-groups
func (h *Handler) ListJobGroups(c *gin.Context) {
	groups, err := h.store.ListJobGroups(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list job groups", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list job groups",
		})
		return
	}

	resp := dto.ListJobGroupsResponse{
		Groups: make([]dto.JobGroupDTO, len(groups)),
	}
	for i := range groups {
		resp.Groups[i] = toJobGroupDTO(&groups[i])
	}

	c.JSON(http.StatusOK, resp)
}

// DeactivateJobGroup handles DELETE /api/v1/job-groups/:group_id
// Groups are soft-disabled, never deleted.
func (h *Handler) DeactivateJobGroup(c *gin.Context) {
	groupID := c.Param("group_id")
	if _, err := uuid.Parse(groupID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "group_id must be a valid UUID",
		})
		return
	}

	err := h.store.DeactivateJobGroup(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, domain.ErrJobGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job group not found",
			})
			return
		}
		h.logger.Error("Failed to deactivate job group", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to deactivate job group",
		})
		return
	}

	h.logger.Info("Job group deactivated", slog.String("group_id", groupID))
	c.Status(http.StatusNoContent)
}

func toJobGroupDTO(group *domain.JobGroup) dto.JobGroupDTO {
	return dto.JobGroupDTO{
		GroupID:     group.GroupID,
		Name:        group.Name,
		Description: group.Description,
		IsActive:    group.IsActive,
		CreatedAt:   group.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   group.UpdatedAt.Format(time.RFC3339),
	}
}
