package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"roadwatch-be/services"
)

var verificationService = services.NewVerificationService(
	verificationStore,
	reportStore,
	userDirectory,
	reportCache,
)

// CreateVerification records the caller's corroboration vote on a report.
func CreateVerification(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		PotholeID string `json:"potholeId" binding:"required"`
		Status    string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	verification, err := verificationService.CastVote(ctx, input.PotholeID, userID, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Pothole verification created successfully", verification)
}

// GetVerificationByPotholeID returns the consensus summary for one report.
func GetVerificationByPotholeID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	summary, err := verificationService.GetConsensus(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "Pothole verification retrieved successfully", summary)
}
