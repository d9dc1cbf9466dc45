package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted by the ledger
const (
	PaymentMethodCash         = "cash"
	PaymentMethodTransfer     = "transfer"
	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodQRPromptPay  = "qr_promptpay"
	defaultPaymentMethodLabel = PaymentMethodCash
)

// Payment is one signed ledger entry against an order. Negative amounts are
// refunds or corrections; entries are never edited except for their date.
type Payment struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	OrderID            uint            `gorm:"not null;index" json:"order_id"` // foreign key to orders table
	Order              *Order          `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Amount             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod      string          `gorm:"not null;default:'cash'" json:"payment_method"`
	CreditCardFee      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"credit_card_fee"`
	NetAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"net_amount"`
	PaymentDate        string          `gorm:"type:varchar(10);not null;index" json:"payment_date"` // YYYY-MM-DD
	ReceiptURL         *string         `json:"receipt_url"`                                         // storage key of the uploaded receipt
	ReceiptDownloadURL string          `gorm:"-" json:"receipt_download_url,omitempty"`             // short-lived URL, never persisted
	Note               *string         `gorm:"type:text" json:"note"`
	CorrectsPaymentID  *uint           `gorm:"index" json:"corrects_payment_id"`
	RecordedBy         *uint           `json:"recorded_by"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// paymentMethodAliases maps labels used by older clients, including the Thai
// counter labels, onto the canonical constants
var paymentMethodAliases = map[string]string{
	"บัตรเครดิต":    PaymentMethodCreditCard,
	"เงินสด":        PaymentMethodCash,
	"โอนเงิน":       PaymentMethodTransfer,
	"bank_transfer": PaymentMethodTransfer,
	"พร้อมเพย์":     PaymentMethodQRPromptPay,
	"promptpay":     PaymentMethodQRPromptPay,
}

// NormalizePaymentMethod lowercases the method and folds the spellings used by
// older clients ("credit card", "Credit-Card", "บัตรเครดิต") onto the canonical constants.
func NormalizePaymentMethod(method string) string {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return defaultPaymentMethodLabel
	}
	m = strings.NewReplacer(" ", "_", "-", "_").Replace(m)
	if canonical, ok := paymentMethodAliases[m]; ok {
		return canonical
	}
	return m
}

// IsCardPayment reports whether the method attracts the card processing fee
func IsCardPayment(method string) bool {
	return NormalizePaymentMethod(method) == PaymentMethodCreditCard
}

// IsRefund reports whether the entry reduces the amount collected
func (p Payment) IsRefund() bool {
	return p.Amount.IsNegative()
}
