package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pagination defaults for order listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ItemInput describes one service line to book. Price defaults to the product's list price.
type ItemInput struct {
	ProductID uint             `json:"product_id" binding:"required"`
	Price     *decimal.Decimal `json:"price"`
	IsUpsell  bool             `json:"is_upsell"`
}

// CreateOrderInput is the booking step payload
type CreateOrderInput struct {
	CustomerID    uint            `json:"customer_id" binding:"required"`
	SalesID       *uint           `json:"sales_id"`
	ArtistID      *uint           `json:"artist_id"`
	OrderDate     string          `json:"order_date"`
	Items         []ItemInput     `json:"items" binding:"required,min=1,dive"`
	Deposit       decimal.Decimal `json:"deposit"`
	PaymentMethod *string         `json:"payment_method"`
	Note          *string         `json:"note"`
}

// UpdateItemInput edits an item's price or upsell flag
type UpdateItemInput struct {
	Price    *decimal.Decimal `json:"price"`
	IsUpsell *bool            `json:"is_upsell"`
}

// OrderFilter narrows an order listing
type OrderFilter struct {
	Status  string
	SalesID *uint
	From    string
	To      string
	Page    int
	Limit   int
}

// OrderService owns the order aggregate and keeps total_income in step with its items
type OrderService struct {
	db    *gorm.DB
	cache CommissionCache
	loc   *time.Location
	now   Clock
}

// NewOrderService creates an order service backed by db. Orders booked
// without a date are dated today in loc.
func NewOrderService(db *gorm.DB, loc *time.Location) *OrderService {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{db: db, cache: GetCommissionCache(), loc: loc, now: time.Now}
}

// CreateOrder books a new order and its items in one transaction
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.OrderDate == "" {
		in.OrderDate = utils.FormatDate(s.now().In(s.loc))
	}
	if !utils.IsValidDate(in.OrderDate) {
		return nil, validationError(CodeInvalidDate, "order_date must be YYYY-MM-DD")
	}
	if len(in.Items) == 0 {
		return nil, validationError(CodeInvalidInput, "an order needs at least one item")
	}
	if in.Deposit.IsNegative() {
		return nil, validationError(CodeInvalidAmount, "deposit must not be negative")
	}
	if err := checkCents("deposit", in.Deposit); err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(in.Items))
	for _, item := range in.Items {
		if seen[item.ProductID] {
			return nil, newError(ErrConflict, CodeDuplicateProduct, "product %d appears more than once", item.ProductID)
		}
		seen[item.ProductID] = true
	}

	var orderID uint
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, in.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError(CodeCustomerNotFound, "customer %d not found", in.CustomerID)
			}
			return fmt.Errorf("failed to load customer: %w", err)
		}

		order := models.Order{
			CustomerID:    in.CustomerID,
			SalesID:       in.SalesID,
			ArtistID:      in.ArtistID,
			OrderDate:     in.OrderDate,
			OrderStatus:   models.OrderStatusBooking,
			Deposit:       in.Deposit,
			PaymentMethod: in.PaymentMethod,
			Note:          in.Note,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, input := range in.Items {
			if _, err := insertItem(tx, order.ID, input); err != nil {
				return err
			}
		}

		if _, err := recalculateTotal(tx, order.ID); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, orderID)
}

// GetOrder loads an order with its customer, sales staff and items
func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Sales").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Preload("Items.Artist").
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodeOrderNotFound, "order %d not found", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &order, nil
}

// ListOrders returns one page of orders, newest order date first, and the total match count
func (s *OrderService) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	if f.Status != "" && !models.IsValidOrderStatus(f.Status) {
		return nil, 0, validationError(CodeInvalidInput, "unknown order status %q", f.Status)
	}
	for _, d := range []string{f.From, f.To} {
		if d != "" && !utils.IsValidDate(d) {
			return nil, 0, validationError(CodeInvalidDate, "date filters must be YYYY-MM-DD")
		}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		query = query.Where("order_status = ?", f.Status)
	}
	if f.SalesID != nil {
		query = query.Where("sales_id = ?", *f.SalesID)
	}
	if f.From != "" {
		query = query.Where("order_date >= ?", f.From)
	}
	if f.To != "" {
		query = query.Where("order_date <= ?", f.To)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	err := query.
		Preload("Customer").
		Preload("Items").
		Order("order_date DESC, id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, total, nil
}

// AddItem appends a service line and recalculates the order total
func (s *OrderService) AddItem(ctx context.Context, orderID uint, in ItemInput) (*models.OrderItem, error) {
	var created *models.OrderItem
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := lockOrder(tx, orderID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ? AND product_id = ?", orderID, in.ProductID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check for duplicate product: %w", err)
		}
		if count > 0 {
			return newError(ErrConflict, CodeDuplicateProduct, "product %d is already on order %d", in.ProductID, orderID)
		}

		item, err := insertItem(tx, orderID, in)
		if err != nil {
			return err
		}
		if _, err := recalculateTotal(tx, orderID); err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RemoveItem deletes a service line. Items are kept once the order has any payment.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uint) error {
	var artistID *uint
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := lockOrder(tx, orderID); err != nil {
			return err
		}
		item, err := itemOfOrder(tx, orderID, itemID)
		if err != nil {
			return err
		}

		var payments int64
		if err := tx.Model(&models.Payment{}).Where("order_id = ?", orderID).Count(&payments).Error; err != nil {
			return fmt.Errorf("failed to count payments: %w", err)
		}
		if payments > 0 {
			return newError(ErrConflict, CodeOrderHasPayments, "order %d has payments; items can no longer be removed", orderID)
		}

		if err := tx.Delete(&models.OrderItem{}, item.ID).Error; err != nil {
			return fmt.Errorf("failed to delete order item: %w", err)
		}
		if _, err := recalculateTotal(tx, orderID); err != nil {
			return err
		}
		artistID = item.ArtistID
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateArtist(ctx, artistID)
	return nil
}

// UpdateItem changes an item's price or upsell flag and recalculates the order total
func (s *OrderService) UpdateItem(ctx context.Context, orderID, itemID uint, in UpdateItemInput) (*models.OrderItem, error) {
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, validationError(CodeInvalidAmount, "price must not be negative")
		}
		if err := checkCents("price", *in.Price); err != nil {
			return nil, err
		}
	}

	var updated *models.OrderItem
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := lockOrder(tx, orderID); err != nil {
			return err
		}
		item, err := itemOfOrder(tx, orderID, itemID)
		if err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if in.Price != nil {
			changes["item_price"] = *in.Price
		}
		if in.IsUpsell != nil {
			changes["is_upsell"] = *in.IsUpsell
		}
		if len(changes) > 0 {
			if err := tx.Model(item).Updates(changes).Error; err != nil {
				return fmt.Errorf("failed to update order item: %w", err)
			}
		}
		if _, err := recalculateTotal(tx, orderID); err != nil {
			return err
		}

		if err := tx.Preload("Product").First(item, item.ID).Error; err != nil {
			return fmt.Errorf("failed to reload order item: %w", err)
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateArtist(ctx, updated.ArtistID)
	return updated, nil
}

// RecalculateTotal recomputes total_income from the order's items
func (s *OrderService) RecalculateTotal(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := lockOrder(tx, orderID); err != nil {
			return err
		}
		var err error
		total, err = recalculateTotal(tx, orderID)
		return err
	})
	return total, err
}

// SetOrderStatus moves an order along booking -> paid -> done, or to cancelled before done
func (s *OrderService) SetOrderStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, validationError(CodeInvalidInput, "unknown order status %q", status)
	}

	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.OrderStatus == status {
			return nil
		}
		if !order.CanTransitionTo(status) {
			return newError(ErrInvalidTransition, CodeInvalidTransition,
				"order cannot move from %s to %s", order.OrderStatus, status)
		}
		if err := tx.Model(order).Update("order_status", status).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		log.Printf("[ledger] order %d status %s -> %s", orderID, order.OrderStatus, status)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, orderID)
}

func (s *OrderService) invalidateArtist(ctx context.Context, artistID *uint) {
	if artistID != nil && s.cache != nil {
		s.cache.InvalidateArtist(ctx, *artistID)
	}
}

// insertItem creates an item for orderID, defaulting its price to the product list price
func insertItem(tx *gorm.DB, orderID uint, in ItemInput) (*models.OrderItem, error) {
	var product models.Product
	if err := tx.First(&product, in.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(CodeProductNotFound, "product %d not found", in.ProductID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	price := product.ListPrice
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, validationError(CodeInvalidAmount, "price must not be negative")
		}
		if err := checkCents("price", *in.Price); err != nil {
			return nil, err
		}
		price = *in.Price
	}

	item := models.OrderItem{
		OrderID:    orderID,
		ProductID:  product.ID,
		ItemPrice:  price,
		IsUpsell:   in.IsUpsell,
		ItemStatus: models.ItemStatusPending,
	}
	if err := tx.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create order item: %w", err)
	}
	item.Product = &product
	item.CompletionState = item.DeriveCompletionState()
	return &item, nil
}

// itemOfOrder loads itemID and checks it belongs to orderID
func itemOfOrder(tx *gorm.DB, orderID, itemID uint) (*models.OrderItem, error) {
	var item models.OrderItem
	err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodeItemNotFound, "order item %d not found on order %d", itemID, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order item: %w", err)
	}
	return &item, nil
}

// recalculateTotal writes the sum of the order's item prices to total_income.
// It must run in the same transaction as the item mutation that triggered it.
func recalculateTotal(tx *gorm.DB, orderID uint) (decimal.Decimal, error) {
	var items []models.OrderItem
	if err := tx.Select("id", "item_price").Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to load order items: %w", err)
	}

	total := models.SumItemPrices(items)
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("total_income", total).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to update order total: %w", err)
	}
	return total, nil
}
