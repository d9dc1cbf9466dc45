package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Clock returns the current time; services take one so tests can pin it
type Clock func() time.Time

// lockOrder loads an order for update inside tx. SQLite ignores the
// locking clause and serialises writers on its own.
func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodeOrderNotFound, "order %d not found", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &order, nil
}

// lockItem loads an order item for update inside tx
func lockItem(tx *gorm.DB, itemID uint) (*models.OrderItem, error) {
	var item models.OrderItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Product").First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodeItemNotFound, "order item %d not found", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order item %d: %w", itemID, err)
	}
	return &item, nil
}

// withTx runs fn in a transaction bound to ctx
func withTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
