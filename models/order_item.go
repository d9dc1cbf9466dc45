package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order item statuses
const (
	ItemStatusPending   = "pending"
	ItemStatusScheduled = "scheduled"
	ItemStatusCompleted = "completed"
	ItemStatusCancelled = "cancelled"
)

// Completion states derived from the completion timestamps
const (
	CompletionCancelled      = "cancelled"
	CompletionCompleted      = "completed"
	CompletionAwaitingArtist = "awaiting_artist"
	CompletionAwaitingSales  = "awaiting_sales"
	CompletionOpen           = "open"
)

// OrderItem is one booked service within an order
type OrderItem struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrderID           uint            `gorm:"not null;index" json:"order_id"` // foreign key to orders table
	Order             *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ProductID         uint            `gorm:"not null;index" json:"product_id"`
	Product           *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ItemPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"item_price"` // may differ from the catalog list price
	IsUpsell          bool            `gorm:"not null;default:false" json:"is_upsell"`
	AppointmentDate   *string         `gorm:"type:varchar(10);index" json:"appointment_date"` // YYYY-MM-DD
	AppointmentTime   *string         `gorm:"type:varchar(5)" json:"appointment_time"`        // HH:MM
	ItemStatus        string          `gorm:"not null;default:'pending'" json:"item_status"`
	StatusOverridden  bool            `gorm:"not null;default:false" json:"status_overridden"` // set when staff forced the status
	ArtistID          *uint           `gorm:"index" json:"artist_id"`                          // nullable until booked
	Artist            *Staff          `gorm:"foreignKey:ArtistID" json:"artist,omitempty"`
	ArtistCompletedAt *time.Time      `json:"artist_completed_at"`
	SalesCompletedAt  *time.Time      `json:"sales_completed_at"`
	SalesCompletedBy  *uint           `json:"sales_completed_by"`
	BookingTitle      *string         `json:"booking_title"`
	CompletionState   string          `gorm:"-" json:"completion_state"`
	CreatedAt         time.Time       `json:"created_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// ArtistDone reports whether the artist confirmed completion
func (i OrderItem) ArtistDone() bool {
	return i.ArtistCompletedAt != nil
}

// SalesDone reports whether the sales side confirmed completion
func (i OrderItem) SalesDone() bool {
	return i.SalesCompletedAt != nil
}

// IsCommissionEligible is true only once both roles have confirmed completion
func (i OrderItem) IsCommissionEligible() bool {
	return i.ArtistDone() && i.SalesDone()
}

// DeriveCompletionState summarises the item from its authoritative fields,
// ignoring any manual status override other than cancellation.
func (i OrderItem) DeriveCompletionState() string {
	switch {
	case i.ItemStatus == ItemStatusCancelled:
		return CompletionCancelled
	case i.IsCommissionEligible():
		return CompletionCompleted
	case i.SalesDone():
		return CompletionAwaitingArtist
	case i.ArtistDone():
		return CompletionAwaitingSales
	default:
		return CompletionOpen
	}
}

// AfterFind fills the derived completion state
func (i *OrderItem) AfterFind(tx *gorm.DB) error {
	i.CompletionState = i.DeriveCompletionState()
	return nil
}
