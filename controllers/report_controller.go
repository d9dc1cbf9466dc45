package controllers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

// GetDailyReport handles GET /api/v1/reports/daily?from=&to=.
// Without a range the current report cycle is used.
func GetDailyReport(c *gin.Context) {
	reports := services.NewReportService(config.GetDB(), config.GetConfig().ReportLocation())

	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		from, to = reports.CurrentPeriod()
	}

	report, err := reports.BuildDailyReport(c.Request.Context(), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// TriggerDailyReport handles POST /api/v1/cron/daily-report. It is called by an
// external scheduler with "Authorization: Bearer <CRON_SECRET>" instead of a user JWT.
func TriggerDailyReport(c *gin.Context) {
	cfg := config.GetConfig()
	secret := cfg.Report.CronSecret
	expected := "Bearer " + secret
	if secret == "" || subtle.ConstantTimeCompare([]byte(c.GetHeader("Authorization")), []byte(expected)) != 1 {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid cron secret")
		return
	}

	scheduler := services.NewReportScheduler(config.GetDB(), services.GetNotifier(), cfg.ReportLocation())
	entry, err := scheduler.Run(c.Request.Context(), services.TriggerManual)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entry,
	})
}
