package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/services"
	"github.com/kendall-kelly/studio-ledger-api/utils"
)

// UploadReceipt handles POST /api/v1/receipts - stores a payment receipt image or PDF.
// The returned key is passed as receipt_ref when recording the payment.
func UploadReceipt(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.PostForm("order_id"), 10, 32)
	if err != nil || orderID == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "order_id is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "NO_FILE", "No file was uploaded")
		return
	}

	// Receipts belong to an existing order
	if _, err := newOrderService().GetOrder(c.Request.Context(), uint(orderID)); err != nil {
		respondServiceError(c, err)
		return
	}

	receipts := services.GetReceiptService()
	if receipts == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Receipt storage is not configured")
		return
	}

	key, err := receipts.UploadReceipt(c.Request.Context(), uint(orderID), fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
			return
		}
		log.Printf("[receipts] Failed to upload receipt for order %d: %v", orderID, err)
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload receipt")
		return
	}

	url, err := receipts.GetReceiptURL(c.Request.Context(), key)
	if err != nil {
		log.Printf("[receipts] Failed to presign receipt %s: %v", key, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"receipt_ref":          key,
			"receipt_download_url": url,
		},
	})
}
