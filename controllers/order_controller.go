package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

// UpdateOrderStatusRequest represents the request body for changing an order's status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func newOrderService() *services.OrderService {
	return services.NewOrderService(config.GetDB(), config.GetConfig().ReportLocation())
}

// CreateOrder handles POST /api/v1/orders - books a new order with its items
func CreateOrder(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	// Sales staff book under their own name unless another sales id is given
	if req.SalesID == nil && staff.Role == models.RoleSales {
		req.SalesID = &staff.ID
	}

	order, err := newOrderService().CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists orders with pagination and filters
func ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))

	filter := services.OrderFilter{
		Status: c.Query("status"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Page:   page,
		Limit:  limit,
	}
	if salesID := c.Query("sales_id"); salesID != "" {
		id, err := strconv.ParseUint(salesID, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "sales_id must be a number")
			return
		}
		sid := uint(id)
		filter.SalesID = &sid
	}

	orders, total, err := newOrderService().ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Echo the effective page size after the service clamps it
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = services.DefaultPageSize
	}
	if filter.Limit > services.MaxPageSize {
		filter.Limit = services.MaxPageSize
	}
	totalPages := (total + int64(filter.Limit) - 1) / int64(filter.Limit)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
		"pagination": gin.H{
			"page":       filter.Page,
			"limit":      filter.Limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := newOrderService().GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status
func UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := newOrderService().SetOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// AddOrderItem handles POST /api/v1/orders/:id/items
func AddOrderItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	item, err := newOrderService().AddItem(c.Request.Context(), orderID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// UpdateOrderItem handles PATCH /api/v1/orders/:id/items/:itemId - edits price or upsell flag
func UpdateOrderItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	var req services.UpdateItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	item, err := newOrderService().UpdateItem(c.Request.Context(), orderID, itemID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// RemoveOrderItem handles DELETE /api/v1/orders/:id/items/:itemId
func RemoveOrderItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	orderService := newOrderService()
	if err := orderService.RemoveItem(c.Request.Context(), orderID, itemID); err != nil {
		respondServiceError(c, err)
		return
	}

	order, err := orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}
