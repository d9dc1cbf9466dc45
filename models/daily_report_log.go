package models

import (
	"time"

	"gorm.io/datatypes"
)

// DailyReportLog records every generated daily report and whether it reached LINE
type DailyReportLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PeriodStart string         `gorm:"type:varchar(10);not null" json:"period_start"`
	PeriodEnd   string         `gorm:"type:varchar(10);not null;index" json:"period_end"`
	Trigger     string         `gorm:"not null;default:'cron'" json:"trigger"` // "cron" or "manual"
	Payload     datatypes.JSON `json:"payload"`
	Delivered   bool           `gorm:"not null;default:false" json:"delivered"`
	Error       *string        `gorm:"type:text" json:"error"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for the DailyReportLog model
func (DailyReportLog) TableName() string {
	return "daily_report_logs"
}
