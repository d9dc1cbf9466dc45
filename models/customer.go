package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Customer is a studio client. Customer records are maintained elsewhere;
// orders only reference them.
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"not null" json:"full_name"`
	Nickname  *string        `json:"nickname"`
	Phone     *string        `json:"phone"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FirstName returns the first word of the customer's full name
func (c Customer) FirstName() string {
	if fields := strings.Fields(c.FullName); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}
