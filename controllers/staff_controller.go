package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMe handles GET /api/v1/me - returns the signed-in staff member
func GetMe(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    staff,
	})
}
