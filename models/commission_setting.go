package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionSetting holds an artist's two commission tiers in percent
type CommissionSetting struct {
	ID                      uint            `gorm:"primaryKey" json:"id"`
	ArtistID                uint            `gorm:"uniqueIndex;not null" json:"artist_id"`
	Artist                  *Staff          `gorm:"foreignKey:ArtistID" json:"artist,omitempty"`
	CommissionNormalPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"commission_normal_percent"`
	Commission50Percent     decimal.Decimal `gorm:"column:commission_50_percent;type:decimal(5,2);not null;default:0" json:"commission_50_percent"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the CommissionSetting model
func (CommissionSetting) TableName() string {
	return "commission_settings"
}

// RateFor returns the percent that applies to the given product
func (s CommissionSetting) RateFor(p Product) decimal.Decimal {
	if p.UsesReducedTier() {
		return s.Commission50Percent
	}
	return s.CommissionNormalPercent
}
