package main

import (
	stdlog "log"
	"net/http"
	"os"

	"roadwatch-be/config"
	"roadwatch-be/models"
	"roadwatch-be/routes"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	log.SetHandler(text.New(os.Stderr))

	db := config.ConnectDB()
	if db == nil {
		stdlog.Fatal("Failed to connect to MongoDB")
	}
	config.ConnectRedis()

	if err := models.EnsureReportIndexes(config.GetCollection("potholeReports")); err != nil {
		stdlog.Fatalf("Failed to create report indexes: %v", err)
	}
	if err := models.EnsureVerificationIndex(config.GetCollection("potholeVerifications")); err != nil {
		stdlog.Fatalf("Failed to create verification index: %v", err)
	}
	if err := models.EnsureUserIndexes(config.GetCollection("users")); err != nil {
		stdlog.Fatalf("Failed to create user indexes: %v", err)
	}

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	routes.AuthRoutes(r)
	routes.ReportRoutes(r)
	routes.VerificationRoutes(r)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
