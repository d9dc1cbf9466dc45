package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/services"
)

// ListCommissionSettings handles GET /api/v1/commission-settings
func ListCommissionSettings(c *gin.Context) {
	rules, err := services.NewCommissionService(config.GetDB()).ListRules(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rules,
	})
}

// UpsertCommissionSetting handles PUT /api/v1/commission-settings/:artistId (admins only)
func UpsertCommissionSetting(c *gin.Context) {
	artistID, ok := parseIDParam(c, "artistId")
	if !ok {
		return
	}

	var req services.CommissionRuleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	rule, err := services.NewCommissionService(config.GetDB()).UpsertRule(c.Request.Context(), artistID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rule,
	})
}

// GetArtistCommission handles GET /api/v1/artists/:id/commission?from=&to=.
// Without a range the current report cycle is used. Artists may only view their own.
func GetArtistCommission(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	artistID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if staff.Role == models.RoleArtist && staff.ID != artistID {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Artists can only view their own commission")
		return
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		cycleStart, cycleEnd := services.NewReportService(config.GetDB(), config.GetConfig().ReportLocation()).CurrentPeriod()
		if from == "" {
			from = cycleStart
		}
		if to == "" {
			to = cycleEnd
		}
	}

	summary, err := services.NewCommissionService(config.GetDB()).ComputeCommission(c.Request.Context(), artistID, from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}
