package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

// UpdatePaymentDateRequest represents the request body for moving a payment to another date
type UpdatePaymentDateRequest struct {
	PaymentDate string `json:"payment_date" binding:"required"`
}

func newLedgerService() *services.LedgerService {
	cfg := config.GetConfig()
	return services.NewLedgerService(config.GetDB(), cfg.Ledger.CardFeePercent, cfg.ReportLocation())
}

// attachReceiptURLs fills the presigned download URL of payments that reference a receipt
func attachReceiptURLs(c *gin.Context, payments []models.Payment) {
	receipts := services.GetReceiptService()
	if receipts == nil {
		return
	}
	for i := range payments {
		if payments[i].ReceiptURL == nil || *payments[i].ReceiptURL == "" {
			continue
		}
		url, err := receipts.GetReceiptURL(c.Request.Context(), *payments[i].ReceiptURL)
		if err != nil {
			log.Printf("[receipts] Failed to presign receipt for payment %d: %v", payments[i].ID, err)
			continue
		}
		payments[i].ReceiptDownloadURL = url
	}
}

// ListPayments handles GET /api/v1/orders/:id/payments - newest payment date first
func ListPayments(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payments, err := newLedgerService().ListPayments(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	attachReceiptURLs(c, payments)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payments,
	})
}

// RecordPayment handles POST /api/v1/orders/:id/payments
func RecordPayment(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RecordPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	req.OrderID = orderID
	req.RecordedBy = &staff.ID

	payment, err := newLedgerService().RecordPayment(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	payments := []models.Payment{*payment}
	attachReceiptURLs(c, payments)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    payments[0],
	})
}

// GetBalance handles GET /api/v1/orders/:id/balance
func GetBalance(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	balance, err := newLedgerService().Balance(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    balance,
	})
}

// UpdatePaymentDate handles PATCH /api/v1/payments/:id/date
func UpdatePaymentDate(c *gin.Context) {
	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePaymentDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	payment, err := newLedgerService().EditEntryDate(c.Request.Context(), paymentID, req.PaymentDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payment,
	})
}

// DeletePayment handles DELETE /api/v1/payments/:id. The receipt object is
// removed after the entry; a storage failure is logged, not returned.
func DeletePayment(c *gin.Context) {
	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	deleted, err := newLedgerService().DeleteEntry(c.Request.Context(), paymentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if receipts := services.GetReceiptService(); receipts != nil && deleted.ReceiptURL != nil {
		if err := receipts.DeleteReceipt(c.Request.Context(), *deleted.ReceiptURL); err != nil {
			log.Printf("[receipts] Failed to delete receipt %s: %v", *deleted.ReceiptURL, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    deleted,
	})
}
