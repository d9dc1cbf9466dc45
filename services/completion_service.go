package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/metrics"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/utils"
	"gorm.io/gorm"
)

// BookingInput assigns an artist and optionally a schedule to an item
type BookingInput struct {
	ArtistID        uint    `json:"artist_id" binding:"required"`
	AppointmentDate *string `json:"appointment_date"`
	AppointmentTime *string `json:"appointment_time"`
	BookingTitle    *string `json:"booking_title"`
}

// CompletionService drives an item through booking and the two independent
// completion acknowledgements
type CompletionService struct {
	db                   *gorm.DB
	cache                CommissionCache
	requireAssignedSales bool
	now                  Clock
}

// NewCompletionService creates a completion service. When requireAssignedSales
// is set, only the order's sales staff (or an admin) may confirm sales-side completion.
func NewCompletionService(db *gorm.DB, requireAssignedSales bool) *CompletionService {
	return &CompletionService{
		db:                   db,
		cache:                GetCommissionCache(),
		requireAssignedSales: requireAssignedSales,
		now:                  time.Now,
	}
}

// GetItem loads an item with its product and artist
func (s *CompletionService) GetItem(ctx context.Context, itemID uint) (*models.OrderItem, error) {
	var item models.OrderItem
	err := s.db.WithContext(ctx).Preload("Product").Preload("Artist").First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodeItemNotFound, "order item %d not found", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order item %d: %w", itemID, err)
	}
	return &item, nil
}

// AssignArtistAndSchedule books an artist onto a pending or scheduled item.
// With a date the item becomes scheduled, without one it stays pending.
func (s *CompletionService) AssignArtistAndSchedule(ctx context.Context, itemID uint, in BookingInput) (*models.OrderItem, error) {
	if in.AppointmentDate != nil && *in.AppointmentDate == "" {
		in.AppointmentDate = nil
	}
	if in.AppointmentTime != nil && *in.AppointmentTime == "" {
		in.AppointmentTime = nil
	}
	if in.AppointmentDate != nil && !utils.IsValidDate(*in.AppointmentDate) {
		return nil, validationError(CodeInvalidDate, "appointment_date must be YYYY-MM-DD")
	}
	if in.AppointmentTime != nil && !utils.IsValidTime(*in.AppointmentTime) {
		return nil, validationError(CodeInvalidDate, "appointment_time must be HH:MM")
	}

	var previousArtist *uint
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		item, err := lockItem(tx, itemID)
		if err != nil {
			return err
		}
		if item.ItemStatus != models.ItemStatusPending && item.ItemStatus != models.ItemStatusScheduled {
			return newError(ErrInvalidTransition, CodeInvalidTransition,
				"an item in status %s cannot be booked", item.ItemStatus)
		}
		if item.ArtistDone() && (item.ArtistID == nil || *item.ArtistID != in.ArtistID) {
			return newError(ErrInvalidTransition, CodeInvalidTransition,
				"the assigned artist already completed this item")
		}

		var artist models.Staff
		err = tx.Where("id = ? AND role = ? AND is_active = ?", in.ArtistID, models.RoleArtist, true).First(&artist).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(CodeArtistNotFound, "artist %d not found", in.ArtistID)
		}
		if err != nil {
			return fmt.Errorf("failed to load artist: %w", err)
		}

		status := models.ItemStatusPending
		if in.AppointmentDate != nil {
			status = models.ItemStatusScheduled
		}

		title := in.BookingTitle
		if title == nil || *title == "" {
			defaultTitle, err := defaultBookingTitle(tx, item, artist)
			if err != nil {
				return err
			}
			title = &defaultTitle
		}

		previousArtist = item.ArtistID
		err = tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"artist_id":         artist.ID,
			"appointment_date":  in.AppointmentDate,
			"appointment_time":  in.AppointmentTime,
			"item_status":       status,
			"status_overridden": false,
			"booking_title":     *title,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to book order item: %w", err)
		}
		return appendSystemMessage(tx, item.ID, models.MessageTypeText,
			bookingMessage(artist.StaffName, in.AppointmentDate, in.AppointmentTime), nil)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, previousArtist)
	s.invalidate(ctx, &in.ArtistID)
	log.Printf("[completion] item %d booked with artist %d", itemID, in.ArtistID)
	return s.GetItem(ctx, itemID)
}

// MarkArtistComplete records the assigned artist's confirmation. A second
// call leaves the original timestamp in place.
func (s *CompletionService) MarkArtistComplete(ctx context.Context, itemID uint, actor models.Staff) (*models.OrderItem, error) {
	var marked bool
	var artistID *uint
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		item, err := lockItem(tx, itemID)
		if err != nil {
			return err
		}
		if item.ItemStatus == models.ItemStatusCancelled {
			return newError(ErrConflict, CodeItemCancelled, "order item %d is cancelled", itemID)
		}
		if item.ArtistID == nil || *item.ArtistID != actor.ID {
			return newError(ErrForbidden, CodeNotAssignedArtist, "only the assigned artist can complete this item")
		}
		artistID = item.ArtistID

		result := tx.Model(&models.OrderItem{}).
			Where("id = ? AND artist_completed_at IS NULL", itemID).
			Update("artist_completed_at", s.now())
		if result.Error != nil {
			return fmt.Errorf("failed to mark artist completion: %w", result.Error)
		}
		marked = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordCompletion(ctx, "artist", itemID, marked, artistID)
	return s.GetItem(ctx, itemID)
}

// MarkSalesComplete records the sales-side confirmation. A second call
// leaves the original timestamp and actor in place.
func (s *CompletionService) MarkSalesComplete(ctx context.Context, itemID uint, actor models.Staff) (*models.OrderItem, error) {
	var marked bool
	var artistID *uint
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		item, err := lockItem(tx, itemID)
		if err != nil {
			return err
		}
		if item.ItemStatus == models.ItemStatusCancelled {
			return newError(ErrConflict, CodeItemCancelled, "order item %d is cancelled", itemID)
		}

		if s.requireAssignedSales && actor.Role != models.RoleAdmin {
			var order models.Order
			if err := tx.Select("id", "sales_id").First(&order, item.OrderID).Error; err != nil {
				return fmt.Errorf("failed to load order: %w", err)
			}
			if order.SalesID == nil || *order.SalesID != actor.ID {
				return newError(ErrForbidden, CodeNotAssignedSales, "only the order's sales staff can complete this item")
			}
		}
		artistID = item.ArtistID

		result := tx.Model(&models.OrderItem{}).
			Where("id = ? AND sales_completed_at IS NULL", itemID).
			Updates(map[string]interface{}{
				"sales_completed_at": s.now(),
				"sales_completed_by": actor.ID,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to mark sales completion: %w", result.Error)
		}
		marked = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordCompletion(ctx, "sales", itemID, marked, artistID)
	return s.GetItem(ctx, itemID)
}

// IsCommissionEligible reports whether both roles have confirmed the item
func (s *CompletionService) IsCommissionEligible(ctx context.Context, itemID uint) (bool, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	return item.IsCommissionEligible(), nil
}

// SetStatus lets staff override the display status. Completion timestamps are
// untouched and the item is flagged as overridden. Cancelled is final.
func (s *CompletionService) SetStatus(ctx context.Context, itemID uint, status string) (*models.OrderItem, error) {
	switch status {
	case models.ItemStatusPending, models.ItemStatusScheduled, models.ItemStatusCompleted, models.ItemStatusCancelled:
	default:
		return nil, validationError(CodeInvalidInput, "unknown item status %q", status)
	}

	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		item, err := lockItem(tx, itemID)
		if err != nil {
			return err
		}
		if item.ItemStatus == status {
			return nil
		}
		if item.ItemStatus == models.ItemStatusCancelled {
			return newError(ErrInvalidTransition, CodeInvalidTransition, "a cancelled item cannot be reopened")
		}
		if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"item_status":       status,
			"status_overridden": true,
		}).Error; err != nil {
			return fmt.Errorf("failed to update item status: %w", err)
		}
		log.Printf("[completion] item %d status overridden %s -> %s", itemID, item.ItemStatus, status)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetItem(ctx, itemID)
}

func (s *CompletionService) recordCompletion(ctx context.Context, role string, itemID uint, marked bool, artistID *uint) {
	outcome := "unchanged"
	if marked {
		outcome = "marked"
		s.invalidate(ctx, artistID)
		log.Printf("[completion] item %d confirmed by %s", itemID, role)
	}
	metrics.CompletionsMarked.WithLabelValues(role, outcome).Inc()
}

func (s *CompletionService) invalidate(ctx context.Context, artistID *uint) {
	if artistID != nil && s.cache != nil {
		s.cache.InvalidateArtist(ctx, *artistID)
	}
}

// defaultBookingTitle builds "<artist>-<product code>-<customer first name>-<nickname>",
// leaving out parts that are empty
func defaultBookingTitle(tx *gorm.DB, item *models.OrderItem, artist models.Staff) (string, error) {
	parts := []string{artist.StaffName}
	if item.Product != nil {
		parts = append(parts, item.Product.ProductCode)
	}

	var customer models.Customer
	err := tx.Unscoped().
		Joins("JOIN orders ON orders.customer_id = customers.id").
		Where("orders.id = ?", item.OrderID).
		First(&customer).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load customer for order %d: %w", item.OrderID, err)
	}
	parts = append(parts, customer.FirstName())
	if customer.Nickname != nil {
		parts = append(parts, strings.TrimSpace(*customer.Nickname))
	}

	title := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			title = append(title, part)
		}
	}
	return strings.Join(title, "-"), nil
}
