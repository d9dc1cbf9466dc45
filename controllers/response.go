package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/middleware"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondServiceError maps a service failure to its HTTP status
func respondServiceError(c *gin.Context, err error) {
	serviceErr, ok := services.AsServiceError(err)
	if !ok {
		log.Printf("[http] Unhandled error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "An unexpected error occurred")
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(serviceErr, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(serviceErr, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(serviceErr, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(serviceErr, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(serviceErr, services.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	}
	respondError(c, status, serviceErr.Code, serviceErr.Message)
}

// parseIDParam reads a positive integer path parameter, writing a 400 when it is malformed
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// currentStaff returns the staff member resolved by middleware.RequireStaff
func currentStaff(c *gin.Context) (models.Staff, bool) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return models.Staff{}, false
	}
	return staff, true
}
