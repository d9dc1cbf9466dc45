package models

import "gorm.io/gorm"

// All lists every persisted model in dependency order
func All() []interface{} {
	return []interface{}{
		&Staff{},
		&Customer{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&BookingMessage{},
		&CommissionSetting{},
		&DailyReportLog{},
	}
}

// AutoMigrate creates or updates the tables for all models.
// Production schemas are managed by cmd/migrate; this is used for SQLite and tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
