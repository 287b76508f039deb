package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobflowhq/jobflow/internal/api/handler"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(c *gin.Context) error

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, dbCheck HealthChecker) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if dbCheck != nil {
			if err := dbCheck(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "jobflow-api-service",
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "jobflow-api-service",
		})
	})

	h := handler.NewHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		groups := v1.Group("/job-groups")
		{
			groups.POST("", h.CreateJobGroup)
			groups.GET("", h.ListJobGroups)
			groups.GET("/:group_id", h.GetJobGroup)
			groups.DELETE("/:group_id", h.DeactivateJobGroup)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.POST("", h.CreateJob)
			jobs.GET("", h.ListJobs)
			jobs.GET("/:job_id", h.GetJob)
			jobs.POST("/:job_id/executions", h.TriggerExecution)
		}

		executions := v1.Group("/executions")
		{
			executions.GET("", h.ListExecutions)
			executions.GET("/:execution_id", h.GetExecution)
			executions.POST("/:execution_id/cancel", h.CancelExecution)
		}

		pipelines := v1.Group("/pipelines")
		{
			pipelines.POST("/api-upload", h.RunPipeline)
		}
	}

	return r
}
