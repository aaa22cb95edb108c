package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"roadwatch-be/cache"
	"roadwatch-be/config"
	"roadwatch-be/models"
	"roadwatch-be/services"
	"roadwatch-be/stores"
)

var reportStore = stores.NewMongoReportStore(config.GetCollection("potholeReports"))
var verificationStore = stores.NewMongoVerificationStore(config.GetCollection("potholeVerifications"))
var userDirectory = stores.NewMongoUserDirectory(config.GetCollection("users"))
var reportCache = cache.NewReportCache(cache.NewRedisBackend(config.ConnectRedis()))

var reportService = services.NewReportService(
	reportStore,
	verificationStore,
	userDirectory,
	reportCache,
	services.NewEligibilityEngine(reportStore),
)

const requestTimeout = 10 * time.Second

// CreateReport handles a new road-hazard submission. Coordinates arrive in
// GeoJSON wire order [longitude, latitude]; they are unpacked into named
// values here and stay named all the way to the store.
func CreateReport(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Issue         string `json:"issue" binding:"required"`
		SeverityLevel string `json:"severityLevel" binding:"required"`
		Location      struct {
			Address     string    `json:"address" binding:"required,min=5,max=200"`
			Coordinates []float64 `json:"coordinates" binding:"required,len=2"`
		} `json:"location" binding:"required"`
		Description string   `json:"description,omitempty"`
		Images      []string `json:"images,omitempty"`
		Videos      []string `json:"videos,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	report, err := reportService.Create(ctx, services.CreateReportInput{
		Issue:         input.Issue,
		SeverityLevel: input.SeverityLevel,
		Address:       input.Location.Address,
		Longitude:     input.Location.Coordinates[0],
		Latitude:      input.Location.Coordinates[1],
		Description:   input.Description,
		UserID:        userID,
		Images:        input.Images,
		Videos:        input.Videos,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Pothole report created successfully", report)
}

// GetAllReports handles the role-scoped, cached report listing.
func GetAllReports(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := reportService.List(ctx, flattenQuery(c), models.UserRole(callerRole(c)))
	if err != nil {
		respondError(c, err)
		return
	}

	respondWithMeta(c, http.StatusOK, "Reports retrieved successfully", result.Result, result.Meta)
}

// GetReportByID retrieves one report with its verification rows.
func GetReportByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	detail, err := reportService.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Report retrieved successfully", detail)
}

// GetMyReports lists the caller's own reports, any status.
func GetMyReports(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := reportService.MyReports(ctx, userID, flattenQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondWithMeta(c, http.StatusOK, "Your reports retrieved successfully", result.Result, result.Meta)
}

// UpdateReport applies a partial admin edit; media URLs are appended.
func UpdateReport(c *gin.Context) {
	var input struct {
		Issue         *string  `json:"issue,omitempty"`
		SeverityLevel *string  `json:"severityLevel,omitempty"`
		Location      *struct {
			Address     string    `json:"address"`
			Coordinates []float64 `json:"coordinates" binding:"omitempty,len=2"`
		} `json:"location,omitempty"`
		Description *string  `json:"description,omitempty"`
		Status      *string  `json:"status,omitempty"`
		Images      []string `json:"images,omitempty"`
		Videos      []string `json:"videos,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := services.UpdateReportInput{
		Issue:         input.Issue,
		SeverityLevel: input.SeverityLevel,
		Description:   input.Description,
		Status:        input.Status,
		AddImages:     input.Images,
		AddVideos:     input.Videos,
	}
	if input.Location != nil && len(input.Location.Coordinates) == 2 {
		upd.Address = &input.Location.Address
		upd.Longitude = &input.Location.Coordinates[0]
		upd.Latitude = &input.Location.Coordinates[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	report, err := reportService.Update(ctx, c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Report updated successfully", report)
}

// UpdateReportStatus sets a single report's status.
func UpdateReportStatus(c *gin.Context) {
	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	report, err := reportService.UpdateStatus(ctx, c.Param("id"), input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Report status updated successfully", report)
}

// BulkUpdateReportStatus sets the status of many reports in one write.
func BulkUpdateReportStatus(c *gin.Context) {
	var input struct {
		IDs    []string `json:"ids" binding:"required,min=1"`
		Status string   `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	count, err := reportService.BulkSetStatus(ctx, input.IDs, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Report statuses updated successfully", gin.H{"updated": count})
}

// DeleteReport removes one report and its verification rows.
func DeleteReport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := reportService.Delete(ctx, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Report deleted successfully", nil)
}

// BulkDeleteReports removes many reports and their verification rows.
func BulkDeleteReports(c *gin.Context) {
	var input struct {
		IDs []string `json:"ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	count, err := reportService.BulkDelete(ctx, input.IDs)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Reports deleted successfully", gin.H{"deleted": count})
}

// GetNearbyReports returns unresolved reports around a point.
func GetNearbyReports(c *gin.Context) {
	longitude, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid longitude"})
		return
	}
	latitude, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid latitude"})
		return
	}

	maxDistance := 0.0
	if raw := c.Query("maxDistance"); raw != "" {
		maxDistance, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maxDistance"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	reports, err := reportService.Nearby(ctx, longitude, latitude, maxDistance)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Nearby reports retrieved successfully", reports)
}

// GetReportStats returns the named analytics counters.
func GetReportStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	stats, err := reportService.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Report stats retrieved successfully", stats)
}
