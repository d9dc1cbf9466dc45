package services

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MockS3Service is an in-memory S3Interface for testing
type MockS3Service struct {
	objects      map[string][]byte
	contentTypes map[string]string
	mu           sync.RWMutex
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

// SetAsMockForTesting sets this mock as the global S3 service instance for testing
func (m *MockS3Service) SetAsMockForTesting() {
	SetS3Service(m)
}

// PutObject stores body under key
func (m *MockS3Service) PutObject(_ context.Context, key, contentType string, body io.Reader) error {
	content, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	m.mu.Lock()
	m.objects[key] = content
	m.contentTypes[key] = contentType
	m.mu.Unlock()
	return nil
}

// GetPresignedURL returns a fake URL for stored keys
func (m *MockS3Service) GetPresignedURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("file not found in mock S3: %s", key)
	}

	return fmt.Sprintf("https://test-bucket.s3.ap-southeast-1.amazonaws.com/%s?mock=true", key), nil
}

// DeleteObject removes key
func (m *MockS3Service) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	delete(m.contentTypes, key)
	m.mu.Unlock()
	return nil
}

// Object returns the stored content and content type (for testing assertions)
func (m *MockS3Service) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.objects[key]
	return content, m.contentTypes[key], ok
}

// Keys returns all stored keys
func (m *MockS3Service) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
