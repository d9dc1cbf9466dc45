package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kendall-kelly/studio-ledger-api/metrics"
	"github.com/kendall-kelly/studio-ledger-api/models"
	"github.com/kendall-kelly/studio-ledger-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultCardFeePercent is the card processing fee applied to positive card receipts
const DefaultCardFeePercent = 3

// RecordPaymentInput is one money movement to append to an order's ledger.
// A negative Amount is a correction or refund. OrderItemID names the item whose
// booking chat records the entry; it defaults to the order's first item.
type RecordPaymentInput struct {
	OrderID           uint            `json:"-"`
	OrderItemID       *uint           `json:"order_item_id"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentDate       string          `json:"payment_date"`
	Note              *string         `json:"note"`
	ReceiptRef        *string         `json:"receipt_ref"`
	CorrectsPaymentID *uint           `json:"corrects_payment_id"`
	RecordedBy        *uint           `json:"-"`
}

// Balance summarises an order's ledger
type Balance struct {
	OrderID     uint            `json:"order_id"`
	OrderStatus string          `json:"order_status"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Remaining   decimal.Decimal `json:"remaining"`
	Fees        decimal.Decimal `json:"fees"`
	Net         decimal.Decimal `json:"net"`
}

// LedgerService records and totals payments per order
type LedgerService struct {
	db         *gorm.DB
	feePercent decimal.Decimal
	loc        *time.Location
	now        Clock
}

// NewLedgerService creates a ledger that charges cardFeePercent on card receipts.
// Entries recorded without a date are dated today in loc.
func NewLedgerService(db *gorm.DB, cardFeePercent float64, loc *time.Location) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{
		db:         db,
		feePercent: decimal.NewFromFloat(cardFeePercent),
		loc:        loc,
		now:        time.Now,
	}
}

// CardFee returns the processing fee for amount paid with method.
// Only positive card receipts carry a fee; it is rounded to two decimals.
func (s *LedgerService) CardFee(amount decimal.Decimal, method string) decimal.Decimal {
	if !models.IsCardPayment(method) || !amount.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(s.feePercent).Div(decimal.NewFromInt(100)).Round(2)
}

// RecordPayment appends a ledger entry and, when the order is fully paid,
// advances it from booking to paid in the same transaction.
func (s *LedgerService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*models.Payment, error) {
	if in.Amount.IsZero() {
		return nil, validationError(CodeInvalidAmount, "amount must not be zero")
	}
	if err := checkCents("amount", in.Amount); err != nil {
		return nil, err
	}
	if in.PaymentDate == "" {
		in.PaymentDate = utils.FormatDate(s.now().In(s.loc))
	}
	if !utils.IsValidDate(in.PaymentDate) {
		return nil, validationError(CodeInvalidDate, "payment_date must be YYYY-MM-DD")
	}
	method := models.NormalizePaymentMethod(in.PaymentMethod)

	var payment models.Payment
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, in.OrderID)
		if err != nil {
			return err
		}

		if in.CorrectsPaymentID != nil {
			if err := validateCorrection(tx, order.ID, *in.CorrectsPaymentID, in.Amount); err != nil {
				return err
			}
		}

		fee := s.CardFee(in.Amount, method)
		payment = models.Payment{
			OrderID:           order.ID,
			Amount:            in.Amount,
			PaymentMethod:     method,
			CreditCardFee:     fee,
			NetAmount:         in.Amount.Sub(fee),
			PaymentDate:       in.PaymentDate,
			ReceiptURL:        in.ReceiptRef,
			Note:              in.Note,
			CorrectsPaymentID: in.CorrectsPaymentID,
			RecordedBy:        in.RecordedBy,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		chatItemID, err := paymentChatItem(tx, order.ID, in.OrderItemID)
		if err != nil {
			return err
		}
		if chatItemID != 0 {
			if err := appendSystemMessage(tx, chatItemID, models.MessageTypeText, paymentMessage(payment), nil); err != nil {
				return err
			}
			if payment.ReceiptURL != nil {
				if err := appendSystemMessage(tx, chatItemID, models.MessageTypeFile, "Payment receipt", payment.ReceiptURL); err != nil {
					return err
				}
			}
		}

		paid, err := totalPaid(tx, order.ID)
		if err != nil {
			return err
		}
		if order.OrderStatus == models.OrderStatusBooking && paid.GreaterThanOrEqual(order.TotalIncome) {
			if err := tx.Model(order).Update("order_status", models.OrderStatusPaid).Error; err != nil {
				return fmt.Errorf("failed to advance order status: %w", err)
			}
			log.Printf("[ledger] order %d fully paid (%s of %s), status booking -> paid", order.ID, paid, order.TotalIncome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := "receipt"
	if payment.IsRefund() {
		kind = "correction"
	}
	metrics.PaymentsRecorded.WithLabelValues(payment.PaymentMethod, kind).Inc()
	log.Printf("[ledger] recorded %s %s on order %d (payment %d)", kind, payment.Amount, payment.OrderID, payment.ID)

	return &payment, nil
}

// TotalPaid sums every ledger entry of the order, positive and negative
func (s *LedgerService) TotalPaid(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	if _, err := s.findOrder(ctx, orderID); err != nil {
		return decimal.Zero, err
	}
	return totalPaid(s.db.WithContext(ctx), orderID)
}

// Remaining is the order total minus what has been paid; negative means overpaid
func (s *LedgerService) Remaining(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	balance, err := s.Balance(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Remaining, nil
}

// Balance returns totals, fees and the remaining amount for the order
func (s *LedgerService) Balance(ctx context.Context, orderID uint) (*Balance, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := s.db.WithContext(ctx).Select("amount", "credit_card_fee", "net_amount").
		Where("order_id = ?", orderID).Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	balance := &Balance{
		OrderID:     order.ID,
		OrderStatus: order.OrderStatus,
		Total:       order.TotalIncome,
		Paid:        decimal.Zero,
		Fees:        decimal.Zero,
		Net:         decimal.Zero,
	}
	for _, p := range payments {
		balance.Paid = balance.Paid.Add(p.Amount)
		balance.Fees = balance.Fees.Add(p.CreditCardFee)
		balance.Net = balance.Net.Add(p.NetAmount)
	}
	balance.Remaining = order.TotalIncome.Sub(balance.Paid)
	return balance, nil
}

// ListPayments returns the order's ledger, latest payment date first
func (s *LedgerService) ListPayments(ctx context.Context, orderID uint) ([]models.Payment, error) {
	if _, err := s.findOrder(ctx, orderID); err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("payment_date DESC, id DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// GetPayment loads a single ledger entry
func (s *LedgerService) GetPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).First(&payment, paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodePaymentNotFound, "payment %d not found", paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment %d: %w", paymentID, err)
	}
	return &payment, nil
}

// EditEntryDate changes only the payment date; amount and fee never change after creation
func (s *LedgerService) EditEntryDate(ctx context.Context, paymentID uint, newDate string) (*models.Payment, error) {
	if !utils.IsValidDate(newDate) {
		return nil, validationError(CodeInvalidDate, "payment_date must be YYYY-MM-DD")
	}

	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(payment).Update("payment_date", newDate).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment date: %w", err)
	}
	payment.PaymentDate = newDate
	return payment, nil
}

// DeleteEntry hard-deletes an erroneous entry. Corrections pointing at it lose their reference.
func (s *LedgerService) DeleteEntry(ctx context.Context, paymentID uint) (*models.Payment, error) {
	var deleted models.Payment
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&deleted, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError(CodePaymentNotFound, "payment %d not found", paymentID)
			}
			return fmt.Errorf("failed to load payment %d: %w", paymentID, err)
		}
		if err := tx.Model(&models.Payment{}).Where("corrects_payment_id = ?", paymentID).
			Update("corrects_payment_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach corrections: %w", err)
		}
		if err := tx.Delete(&models.Payment{}, paymentID).Error; err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ledger] deleted payment %d (%s) from order %d", deleted.ID, deleted.Amount, deleted.OrderID)
	return &deleted, nil
}

func (s *LedgerService) findOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(CodeOrderNotFound, "order %d not found", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &order, nil
}

// validateCorrection checks that a correction is negative and targets a payment on the same order
func validateCorrection(tx *gorm.DB, orderID, correctedID uint, amount decimal.Decimal) error {
	if !amount.IsNegative() {
		return validationError(CodeInvalidCorrection, "a correction must have a negative amount")
	}

	var original models.Payment
	err := tx.First(&original, correctedID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(CodePaymentNotFound, "corrected payment %d not found", correctedID)
	}
	if err != nil {
		return fmt.Errorf("failed to load corrected payment: %w", err)
	}
	if original.OrderID != orderID {
		return validationError(CodeInvalidCorrection, "payment %d belongs to another order", correctedID)
	}
	return nil
}

// totalPaid sums in Go; SQLite hands NUMERIC sums back as REAL
func totalPaid(db *gorm.DB, orderID uint) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := db.Model(&models.Payment{}).Where("order_id = ?", orderID).Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// checkCents rejects money values finer than the stored two decimal places
func checkCents(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return validationError(CodeInvalidAmount, "%s must have at most two decimal places", field)
	}
	return nil
}
