package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/kendall-kelly/studio-ledger-api/utils"
)

// ReceiptService stores payment receipt files and hands out download links
type ReceiptService interface {
	// UploadReceipt validates and stores a receipt for orderID, returning its storage key
	UploadReceipt(ctx context.Context, orderID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetReceiptURL returns a short-lived download URL for a stored receipt
	GetReceiptURL(ctx context.Context, key string) (string, error)

	// DeleteReceipt removes a stored receipt
	DeleteReceipt(ctx context.Context, key string) error
}

// S3ReceiptService implements ReceiptService on top of S3
type S3ReceiptService struct {
	s3Service S3Interface
}

var receiptServiceInstance ReceiptService

// InitReceiptService initializes the receipt service with an S3 backend
func InitReceiptService(s3Service S3Interface) ReceiptService {
	receiptServiceInstance = NewReceiptService(s3Service)
	return receiptServiceInstance
}

// NewReceiptService creates a receipt service without touching the global instance
func NewReceiptService(s3Service S3Interface) *S3ReceiptService {
	return &S3ReceiptService{s3Service: s3Service}
}

// GetReceiptService returns the initialized receipt service instance
func GetReceiptService() ReceiptService {
	return receiptServiceInstance
}

// SetReceiptService sets the receipt service instance (primarily for testing)
func SetReceiptService(service ReceiptService) {
	receiptServiceInstance = service
}

// ReceiptKey builds the object key payment-receipts/<orderId>/<uuid>_<name>
func ReceiptKey(orderID uint, filename string) string {
	return fmt.Sprintf("payment-receipts/%d/%s_%s", orderID, uuid.NewString(), utils.SanitizeFilename(filename))
}

// UploadReceipt validates the file and uploads it to S3
func (s *S3ReceiptService) UploadReceipt(ctx context.Context, orderID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateReceiptFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("[receipts] failed to close file: %v", closeErr)
		}
	}()

	key := ReceiptKey(orderID, fileHeader.Filename)
	if err := s.s3Service.PutObject(ctx, key, utils.ReceiptContentType(fileHeader.Filename), file); err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}
	return key, nil
}

// GetReceiptURL returns a presigned URL for key
func (s *S3ReceiptService) GetReceiptURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.s3Service.GetPresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate receipt URL: %w", err)
	}
	return url, nil
}

// DeleteReceipt removes key from S3
func (s *S3ReceiptService) DeleteReceipt(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.s3Service.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}
