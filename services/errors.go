package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every ServiceError wraps exactly one of these so callers can
// classify failures with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
)

// Error codes returned to API clients
const (
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInvalidDate       = "INVALID_DATE"
	CodeInvalidPercent    = "INVALID_PERCENT"
	CodeInvalidInput      = "VALIDATION_ERROR"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeItemNotFound      = "ITEM_NOT_FOUND"
	CodePaymentNotFound   = "PAYMENT_NOT_FOUND"
	CodeArtistNotFound    = "ARTIST_NOT_FOUND"
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeCustomerNotFound  = "CUSTOMER_NOT_FOUND"
	CodeStaffNotFound     = "STAFF_NOT_FOUND"
	CodeNotAssignedArtist = "NOT_ASSIGNED_ARTIST"
	CodeNotAssignedSales  = "NOT_ASSIGNED_SALES"
	CodeItemCancelled     = "ITEM_CANCELLED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeDuplicateProduct  = "DUPLICATE_PRODUCT"
	CodeOrderHasPayments  = "ORDER_HAS_PAYMENTS"
	CodeInvalidCorrection = "INVALID_CORRECTION"
)

// ServiceError is a classified, client-facing failure
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap exposes the error kind
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newError(kind error, code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Code: code, Message: fmt.Sprintf(format, args...), Err: kind}
}

func validationError(code, format string, args ...interface{}) *ServiceError {
	return newError(ErrValidation, code, format, args...)
}

func notFoundError(code, format string, args ...interface{}) *ServiceError {
	return newError(ErrNotFound, code, format, args...)
}

// AsServiceError extracts a ServiceError from err, if any
func AsServiceError(err error) (*ServiceError, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}
