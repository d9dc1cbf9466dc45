package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses
const (
	OrderStatusBooking   = "booking"
	OrderStatusPaid      = "paid"
	OrderStatusDone      = "done"
	OrderStatusCancelled = "cancelled"
)

// orderTransitions lists the statuses each order status may move to
var orderTransitions = map[string][]string{
	OrderStatusBooking:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusDone, OrderStatusCancelled},
	OrderStatusDone:      {},
	OrderStatusCancelled: {},
}

// Order represents one customer transaction grouping booked services
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CustomerID    uint            `gorm:"not null;index" json:"customer_id"` // foreign key to customers table
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	SalesID       *uint           `gorm:"index" json:"sales_id"` // nullable, staff who sold the order
	Sales         *Staff          `gorm:"foreignKey:SalesID" json:"sales,omitempty"`
	ArtistID      *uint           `gorm:"index" json:"artist_id"` // nullable, primary artist for legacy single-artist orders
	OrderDate     string          `gorm:"type:varchar(10);not null;index" json:"order_date"` // YYYY-MM-DD
	OrderStatus   string          `gorm:"not null;default:'booking';index" json:"order_status"`
	TotalIncome   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_income"` // sum of item prices
	Deposit       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"deposit"`      // legacy advance payment field
	PaymentMethod *string         `json:"payment_method"`
	Note          *string         `gorm:"type:text" json:"note"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payments      []Payment       `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsValidOrderStatus reports whether status is a known order status
func IsValidOrderStatus(status string) bool {
	_, ok := orderTransitions[status]
	return ok
}

// CanTransitionTo reports whether the order may move from its current status to next
func (o Order) CanTransitionTo(next string) bool {
	for _, allowed := range orderTransitions[o.OrderStatus] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SumItemPrices adds up the prices of the given items
func SumItemPrices(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.ItemPrice)
	}
	return total
}
