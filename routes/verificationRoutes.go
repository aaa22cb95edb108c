package routes

import (
	"roadwatch-be/controllers"
	"roadwatch-be/middlewares"

	"github.com/gin-gonic/gin"
)

// VerificationRoutes sets up the pothole verification routes
func VerificationRoutes(r *gin.Engine) {
	verification := r.Group("/api/verification")
	{
		verification.POST("/", middlewares.AuthMiddleware(), controllers.CreateVerification)
		verification.GET("/report/:id", controllers.GetVerificationByPotholeID)
	}
}
