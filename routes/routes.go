package routes

import (
	"project-report-api/controllers"
	"project-report-api/middleware"
	"project-report-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)
			public.POST("/forgot-password", controllers.ForgotPassword)
			public.POST("/reset-password", controllers.ResetPassword)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Project Report API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Reports
			reports := protected.Group("/reports")
			{
				// Any authenticated user submits as owner and sees their own
				reports.POST("", controllers.SubmitReport)
				reports.GET("/mine", controllers.GetMyReports)

				// Document fetch is checked against owner/reviewer in the service
				reports.GET("/:id/document", controllers.GetReportDocument)

				// Delete allows owner or reviewer; checked in the service
				reports.DELETE("/:id", controllers.DeleteReport)

				// Reviewer-only surface
				reviewers := reports.Group("")
				reviewers.Use(middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
				{
					reviewers.GET("", controllers.GetAllReports)
					reviewers.PUT("/:id/approve", controllers.ApproveReport)
					reviewers.PUT("/:id/reject", controllers.RejectReport)
					reviewers.POST("/:id/certificate", controllers.IssueCertificate)
				}
			}

			// Dashboard (reviewer view)
			dashboard := protected.Group("/dashboard")
			dashboard.Use(middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
			{
				dashboard.GET("/stats", controllers.GetDashboardStats)
			}

			// Account directory (admin only)
			users := protected.Group("/users")
			users.Use(middleware.RequireRole(models.RoleAdmin))
			{
				users.POST("", controllers.CreateUser)
				users.GET("", controllers.GetUsers)
				users.DELETE("/:id", controllers.DeleteUser)
			}
		}
	}
}
