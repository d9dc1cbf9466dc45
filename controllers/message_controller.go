package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

// attachFileURLs fills the presigned download URL of file messages
func attachFileURLs(c *gin.Context, messages []models.BookingMessage) {
	receipts := services.GetReceiptService()
	if receipts == nil {
		return
	}
	for i := range messages {
		if !messages[i].IsFile() {
			continue
		}
		url, err := receipts.GetReceiptURL(c.Request.Context(), *messages[i].FileURL)
		if err != nil {
			log.Printf("[chat] Failed to presign file for message %d: %v", messages[i].ID, err)
			continue
		}
		messages[i].FileDownloadURL = url
	}
}

// ListItemMessages handles GET /api/v1/items/:id/messages - the item's booking chat, oldest first
func ListItemMessages(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	messages, err := services.NewMessageService(config.GetDB()).ListMessages(c.Request.Context(), itemID, staff)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	attachFileURLs(c, messages)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
	})
}

// PostItemMessage handles POST /api/v1/items/:id/messages - posts a staff message
func PostItemMessage(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.PostMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	message, err := services.NewMessageService(config.GetDB()).PostMessage(c.Request.Context(), itemID, staff, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	messages := []models.BookingMessage{*message}
	attachFileURLs(c, messages)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    messages[0],
	})
}
