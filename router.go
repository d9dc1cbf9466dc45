package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/controllers"
	"github.com/kendall-kelly/studio-ledger-api/metrics"
	"github.com/kendall-kelly/studio-ledger-api/middleware"
	"github.com/kendall-kelly/studio-ledger-api/models"
)

// setupRouter builds the route table. authenticate validates the caller's
// token; tests pass a stub that sets the same context keys.
func setupRouter(cfg *config.Config, authenticate gin.HandlerFunc) (*gin.Engine, error) {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	}))

	rateLimit, err := middleware.RateLimit(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(rateLimit)
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		// Called by the external scheduler with the cron secret, not a user token
		v1.POST("/cron/daily-report", controllers.TriggerDailyReport)
	}

	api := v1.Group("")
	api.Use(authenticate, middleware.RequireStaff())
	{
		api.GET("/me", controllers.GetMe)

		salesOnly := middleware.RequireRole(models.RoleSales)
		adminOnly := middleware.RequireRole(models.RoleAdmin)

		api.GET("/orders", controllers.ListOrders)
		api.GET("/orders/:id", controllers.GetOrder)
		api.POST("/orders", salesOnly, controllers.CreateOrder)
		api.PATCH("/orders/:id/status", salesOnly, controllers.UpdateOrderStatus)
		api.POST("/orders/:id/items", salesOnly, controllers.AddOrderItem)
		api.PATCH("/orders/:id/items/:itemId", salesOnly, controllers.UpdateOrderItem)
		api.DELETE("/orders/:id/items/:itemId", salesOnly, controllers.RemoveOrderItem)

		api.GET("/orders/:id/payments", salesOnly, controllers.ListPayments)
		api.POST("/orders/:id/payments", salesOnly, controllers.RecordPayment)
		api.GET("/orders/:id/balance", salesOnly, controllers.GetBalance)
		api.PATCH("/payments/:id/date", salesOnly, controllers.UpdatePaymentDate)
		api.DELETE("/payments/:id", salesOnly, controllers.DeletePayment)
		api.POST("/receipts", salesOnly, controllers.UploadReceipt)

		api.PUT("/items/:id/booking", salesOnly, controllers.BookItem)
		api.POST("/items/:id/artist-complete", middleware.RequireRole(models.RoleArtist), controllers.MarkArtistComplete)
		api.POST("/items/:id/sales-complete", salesOnly, controllers.MarkSalesComplete)
		api.PATCH("/items/:id/status", salesOnly, controllers.UpdateItemStatus)
		api.GET("/items/:id/eligibility", controllers.GetItemEligibility)
		api.GET("/items/:id/messages", controllers.ListItemMessages)
		api.POST("/items/:id/messages", controllers.PostItemMessage)

		api.GET("/commission-settings", adminOnly, controllers.ListCommissionSettings)
		api.PUT("/commission-settings/:artistId", adminOnly, controllers.UpsertCommissionSetting)
		api.GET("/artists/:id/commission", middleware.RequireRole(models.RoleArtist), controllers.GetArtistCommission)

		api.GET("/reports/daily", salesOnly, controllers.GetDailyReport)
	}

	return router, nil
}
