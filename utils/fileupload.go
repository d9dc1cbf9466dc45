package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// MaxReceiptSize is 5MB in bytes
	MaxReceiptSize = 5 * 1024 * 1024
)

// receiptContentTypes maps the accepted receipt extensions to their content type
var receiptContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".pdf":  "application/pdf",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateReceiptFile checks the uploaded receipt's size and format
func ValidateReceiptFile(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return &FileUploadError{Code: "NO_FILE", Message: "No file was uploaded"}
	}

	if fileHeader.Size > MaxReceiptSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxReceiptSize/(1024*1024)),
		}
	}

	if _, ok := receiptContentTypes[strings.ToLower(filepath.Ext(fileHeader.Filename))]; !ok {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only PNG, JPEG and PDF receipts are allowed",
		}
	}

	return nil
}

// ReceiptContentType returns the content type for a receipt filename
func ReceiptContentType(filename string) string {
	if ct, ok := receiptContentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// SanitizeFilename strips directories and characters that are awkward in object keys
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	clean := unsafeFilenameChars.ReplaceAllString(base, "_")
	clean = strings.Trim(clean, "_")
	if clean == "" || clean == "." {
		return "receipt"
	}
	return clean
}
