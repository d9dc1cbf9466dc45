package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PostMessageInput is a staff entry in an item's booking chat. FileRef is a
// storage key returned by the receipt upload.
type PostMessageInput struct {
	Text    string  `json:"text"`
	FileRef *string `json:"file_ref"`
}

// MessageService reads and writes the per-item booking chat
type MessageService struct {
	db *gorm.DB
}

// NewMessageService creates a message service backed by db
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// ListMessages returns an item's chat oldest first. Artists only see items booked to them.
func (s *MessageService) ListMessages(ctx context.Context, itemID uint, viewer models.Staff) ([]models.BookingMessage, error) {
	if err := s.authorize(ctx, itemID, viewer); err != nil {
		return nil, err
	}

	var messages []models.BookingMessage
	err := s.db.WithContext(ctx).
		Where("order_item_id = ?", itemID).
		Preload("Sender").
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

// PostMessage appends a staff message to an item's chat
func (s *MessageService) PostMessage(ctx context.Context, itemID uint, sender models.Staff, in PostMessageInput) (*models.BookingMessage, error) {
	text := strings.TrimSpace(in.Text)
	if in.FileRef != nil && *in.FileRef == "" {
		in.FileRef = nil
	}
	if text == "" && in.FileRef == nil {
		return nil, validationError(CodeInvalidInput, "a message needs text or a file")
	}
	if err := s.authorize(ctx, itemID, sender); err != nil {
		return nil, err
	}

	message := models.BookingMessage{
		OrderItemID: itemID,
		SenderType:  models.SenderTypeStaff,
		SenderID:    &sender.ID,
		MessageType: models.MessageTypeText,
		Text:        text,
		FileURL:     in.FileRef,
	}
	if in.FileRef != nil {
		message.MessageType = models.MessageTypeFile
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	message.Sender = &sender
	return &message, nil
}

func (s *MessageService) authorize(ctx context.Context, itemID uint, staff models.Staff) error {
	var item models.OrderItem
	err := s.db.WithContext(ctx).First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(CodeItemNotFound, "order item %d not found", itemID)
	}
	if err != nil {
		return fmt.Errorf("failed to load order item %d: %w", itemID, err)
	}

	if staff.Role == models.RoleArtist && (item.ArtistID == nil || *item.ArtistID != staff.ID) {
		return newError(ErrForbidden, CodeNotAssignedArtist, "order item %d is not booked to you", itemID)
	}
	return nil
}

// appendSystemMessage writes a system entry to an item's chat inside tx
func appendSystemMessage(tx *gorm.DB, itemID uint, messageType, text string, fileURL *string) error {
	message := models.BookingMessage{
		OrderItemID: itemID,
		SenderType:  models.SenderTypeSystem,
		MessageType: messageType,
		Text:        text,
		FileURL:     fileURL,
	}
	if err := tx.Create(&message).Error; err != nil {
		return fmt.Errorf("failed to write booking message: %w", err)
	}
	return nil
}

// paymentChatItem picks the item whose chat records a payment: the one named
// by itemID, or the order's first item. It returns 0 for an order without items.
func paymentChatItem(tx *gorm.DB, orderID uint, itemID *uint) (uint, error) {
	if itemID != nil {
		item, err := itemOfOrder(tx, orderID, *itemID)
		if err != nil {
			return 0, err
		}
		return item.ID, nil
	}

	var item models.OrderItem
	err := tx.Where("order_id = ?", orderID).Order("id ASC").Limit(1).Find(&item).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load order items: %w", err)
	}
	return item.ID, nil
}

// paymentMessage describes a ledger entry for the booking chat
func paymentMessage(p models.Payment) string {
	if p.IsRefund() {
		return fmt.Sprintf("Payment reduced by ฿%s (correction)", p.Amount.Abs().StringFixed(2))
	}
	text := fmt.Sprintf("Received ฿%s via %s", p.Amount.StringFixed(2), p.PaymentMethod)
	if p.CreditCardFee.GreaterThan(decimal.Zero) {
		text += fmt.Sprintf(" (fee ฿%s)", p.CreditCardFee.StringFixed(2))
	}
	return text
}

// bookingMessage describes an artist booking for the booking chat
func bookingMessage(artistName string, date, clock *string) string {
	text := "Booked with " + artistName
	if date != nil {
		text += " on " + *date
		if clock != nil {
			text += " at " + *clock
		}
	}
	return text
}
