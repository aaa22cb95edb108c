package routes

import (
	"roadwatch-be/controllers"
	"roadwatch-be/middlewares"

	"github.com/gin-gonic/gin"
)

// ReportRoutes sets up the pothole report routes
func ReportRoutes(r *gin.Engine) {
	report := r.Group("/api/report")
	{
		report.POST("/", middlewares.AuthMiddleware(), middlewares.ReportRateLimiter(10), controllers.CreateReport)
		report.GET("/", middlewares.AuthMiddleware(), controllers.GetAllReports)
		report.GET("/nearby", controllers.GetNearbyReports)
		report.GET("/my-reports", middlewares.AuthMiddleware(), controllers.GetMyReports)
		report.GET("/stats", controllers.GetReportStats)
		report.PATCH("/bulk-update-status", middlewares.AuthMiddleware(), middlewares.RequireAdmin(), controllers.BulkUpdateReportStatus)
		report.DELETE("/bulk-delete", middlewares.AuthMiddleware(), middlewares.RequireAdmin(), controllers.BulkDeleteReports)
		report.GET("/:id", controllers.GetReportByID)
		report.PATCH("/:id", middlewares.AuthMiddleware(), middlewares.RequireAdmin(), controllers.UpdateReport)
		report.PATCH("/:id/status", middlewares.AuthMiddleware(), middlewares.RequireAdmin(), controllers.UpdateReportStatus)
		report.DELETE("/:id", middlewares.AuthMiddleware(), middlewares.RequireAdmin(), controllers.DeleteReport)
	}
}
