package models

import (
	"github.com/shopspring/decimal"
)

// ReducedTierValidityMonths is the validity period that marks a service as
// sold on the reduced commission tier.
const ReducedTierValidityMonths = 12

// MasterBookingListPrice is the list price from which a service counts as a master booking
var MasterBookingListPrice = decimal.NewFromInt(20000)

// Product is a catalog service
type Product struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProductCode    string          `gorm:"uniqueIndex;not null" json:"product_code"`
	ProductName    string          `gorm:"not null" json:"product_name"`
	ListPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"list_price"`
	IsFree         bool            `gorm:"not null;default:false" json:"is_free"`
	ValidityMonths int             `gorm:"not null;default:0" json:"validity_months"`
	Category       *string         `json:"category"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// UsesReducedTier reports whether commission on this service uses the reduced tier
func (p Product) UsesReducedTier() bool {
	return p.ValidityMonths == ReducedTierValidityMonths
}

// CategoryOr returns the product category or the fallback when none is set
func (p Product) CategoryOr(fallback string) string {
	if p.Category == nil || *p.Category == "" {
		return fallback
	}
	return *p.Category
}
