package app

import (
	"onboard_proctor_backend/internal/config"
	"onboard_proctor_backend/internal/middleware"
	"onboard_proctor_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	assessments := router.Group("/api/assessments")
	assessments.Use(middleware.AuthMiddleware(cfg))
	{
		assessments.POST("/start", c.assessment.StartAssessment)
		assessments.POST("/event", c.assessment.RecordEvent)
		assessments.POST("/violation", c.assessment.RecordViolation)
		assessments.POST("/upload-chunk", c.recording.UploadChunk)
		assessments.POST("/upload-recording", c.recording.UploadRecording)
		assessments.POST("/complete", c.assessment.Complete)
		assessments.GET("/config/:attemptId", c.assessment.TaskConfig)
		assessments.GET("/results/:userId", c.assessment.UserResults)
	}
}
