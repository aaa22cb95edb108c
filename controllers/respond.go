package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roadwatch-be/apperror"
)

// respond writes the standard success envelope.
func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func respondWithMeta(c *gin.Context, status int, message string, data, meta interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"meta":    meta,
		"data":    data,
	})
}

// respondError maps the domain error kind to a transport status code.
// Messages pass through unmodified; internals are masked.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong"

	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case apperror.KindConflict:
		status = http.StatusConflict
		message = err.Error()
	case apperror.KindInvalidInput:
		status = http.StatusBadRequest
		message = err.Error()
	case apperror.KindUnauthorized:
		status = http.StatusUnauthorized
		message = err.Error()
	}

	c.JSON(status, gin.H{"success": false, "message": message})
}

// flattenQuery collapses the URL query to first values for the query cache
// and the list pipeline.
func flattenQuery(c *gin.Context) map[string]string {
	values := c.Request.URL.Query()
	query := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			query[key] = vals[0]
		}
	}
	return query
}

// callerID returns the authenticated user id set by the auth middleware.
func callerID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

// callerRole returns the authenticated caller's role, defaulting to USER.
func callerRole(c *gin.Context) string {
	role, exists := c.Get("role")
	if !exists {
		return "USER"
	}
	if r, ok := role.(string); ok && r != "" {
		return r
	}
	return "USER"
}
