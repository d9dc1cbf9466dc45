package models

import "time"

// Booking chat sender and message types
const (
	SenderTypeSystem = "system"
	SenderTypeStaff  = "staff"

	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// BookingMessage is one entry in an order item's booking chat. System entries
// are written alongside bookings and ledger entries; staff entries are posted by hand.
type BookingMessage struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OrderItemID     uint       `gorm:"not null;index" json:"order_item_id"` // foreign key to order_items table
	OrderItem       *OrderItem `gorm:"foreignKey:OrderItemID" json:"-"`
	SenderType      string     `gorm:"not null;default:'system'" json:"sender_type"`
	SenderID        *uint      `gorm:"index" json:"sender_id"` // nil for system entries
	Sender          *Staff     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	MessageType     string     `gorm:"not null;default:'text'" json:"message_type"`
	Text            string     `gorm:"type:text;not null" json:"message_text"`
	FileURL         *string    `json:"file_url"`                             // storage key of an attached file
	FileDownloadURL string     `gorm:"-" json:"file_download_url,omitempty"` // short-lived URL, never persisted
	IsRead          bool       `gorm:"not null;default:false" json:"is_read"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName specifies the table name for the BookingMessage model
func (BookingMessage) TableName() string {
	return "booking_messages"
}

// IsFile reports whether the message carries an attachment
func (m BookingMessage) IsFile() bool {
	return m.MessageType == MessageTypeFile && m.FileURL != nil
}
