package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

// UpdateItemStatusRequest represents a staff override of an item's display status
type UpdateItemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func newCompletionService() *services.CompletionService {
	return services.NewCompletionService(config.GetDB(), config.GetConfig().Ledger.SalesCompletionRequiresAssignedSales)
}

// BookItem handles PUT /api/v1/items/:id/booking - assigns an artist and schedule
func BookItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.BookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	item, err := newCompletionService().AssignArtistAndSchedule(c.Request.Context(), itemID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// MarkArtistComplete handles POST /api/v1/items/:id/artist-complete
func MarkArtistComplete(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := newCompletionService().MarkArtistComplete(c.Request.Context(), itemID, staff)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// MarkSalesComplete handles POST /api/v1/items/:id/sales-complete
func MarkSalesComplete(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := newCompletionService().MarkSalesComplete(c.Request.Context(), itemID, staff)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// UpdateItemStatus handles PATCH /api/v1/items/:id/status
func UpdateItemStatus(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	item, err := newCompletionService().SetStatus(c.Request.Context(), itemID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// GetItemEligibility handles GET /api/v1/items/:id/eligibility
func GetItemEligibility(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := newCompletionService().GetItem(c.Request.Context(), itemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"item_id":             item.ID,
			"eligible":            item.IsCommissionEligible(),
			"completion_state":    item.CompletionState,
			"artist_completed_at": item.ArtistCompletedAt,
			"sales_completed_at":  item.SalesCompletedAt,
		},
	})
}
