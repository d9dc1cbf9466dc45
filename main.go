package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/middleware"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

func main() {
	log.Println("[server] Starting Studio Ledger API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[server] Failed to load configuration: %v", err)
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("[server] Failed to connect to database: %v", err)
	}
	db := config.GetDB()

	// PostgreSQL schemas are managed by cmd/migrate; SQLite is for local runs
	if cfg.UsesSQLite() {
		if err := models.AutoMigrate(db); err != nil {
			log.Fatalf("[server] Failed to migrate database: %v", err)
		}
		log.Println("[server] Database migration completed successfully")
	}

	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service()
		if err != nil {
			log.Fatalf("[server] Failed to initialize S3: %v", err)
		}
		services.InitReceiptService(s3Service)
	} else {
		log.Println("[server] AWS_S3_BUCKET not set, receipt uploads are disabled")
	}

	if _, err := services.InitCommissionCache(); err != nil {
		log.Printf("[server] Commission cache unavailable, continuing without it: %v", err)
	}

	notifier := services.InitNotifier()
	scheduler := services.NewReportScheduler(db, notifier, cfg.ReportLocation())
	if err := scheduler.Start(cfg.Report.Cron); err != nil {
		log.Fatalf("[server] Failed to schedule daily report: %v", err)
	}
	defer scheduler.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := setupRouter(cfg, middleware.EnsureValidToken(cfg))
	if err != nil {
		log.Fatalf("[server] Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[server] Server is running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[server] Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[server] Server forced to shut down: %v", err)
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Studio Ledger API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
