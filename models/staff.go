package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff roles
const (
	RoleAdmin  = "admin"
	RoleSales  = "sales"
	RoleArtist = "artist"
)

// Staff represents a studio employee who signs in through Auth0
type Staff struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   *string        `gorm:"uniqueIndex" json:"auth0_id"` // Auth0 user ID (from 'sub' claim), linked on first sign-in
	StaffName string         `gorm:"not null" json:"staff_name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'sales'" json:"role"` // "admin", "sales" or "artist"
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Staff model
func (Staff) TableName() string {
	return "staff"
}

// HasRole reports whether the staff member holds any of the given roles.
// Admins pass every role check.
func (s Staff) HasRole(roles ...string) bool {
	if s.Role == RoleAdmin {
		return true
	}
	for _, role := range roles {
		if s.Role == role {
			return true
		}
	}
	return false
}
