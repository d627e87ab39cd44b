package api

import (
	"github.com/huseinhashi/academic-record/internal/model"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler, jwtSecret string) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")

	recordsGroup := v1.Group("/records")
	{
		// Public fingerprint check, no auth
		recordsGroup.GET("/check-hash/:hash", handler.CheckHash)

		authed := recordsGroup.Group("", AuthMiddleware(jwtSecret))
		{
			authed.POST("", RequireRole(model.RoleStudent), handler.SubmitRecord)
			authed.GET("/my-records", RequireRole(model.RoleStudent), handler.GetMyRecords)
			authed.GET("/student/:id", handler.GetStudentRecords)
			authed.GET("/institution/:id", RequireRole(model.RoleInstitution, model.RoleAdmin), handler.GetInstitutionRecords)
			authed.PUT("/verify/:id", RequireRole(model.RoleInstitution), handler.VerifyRecord)
			authed.PUT("/:id", RequireRole(model.RoleStudent), handler.ResubmitRecord)
			authed.GET("/:id", handler.GetRecord)
			authed.DELETE("/:id", RequireRole(model.RoleStudent, model.RoleAdmin), handler.DeleteRecord)
		}
	}
}
