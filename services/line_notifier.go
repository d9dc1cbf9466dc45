package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	appConfig "github.com/kendall-kelly/studio-ledger-api/config"
)

// LINE rejects text messages longer than this
const lineMaxTextLength = 5000

// ErrNotifierDisabled is returned when no LINE credentials are configured
var ErrNotifierDisabled = errors.New("LINE notifier is not configured")

// Notifier pushes a text message to the studio's report recipient
type Notifier interface {
	Push(ctx context.Context, text string) error
}

// LineNotifier pushes messages through the LINE Messaging API
type LineNotifier struct {
	baseURL    string
	token      string
	to         string
	httpClient *http.Client
}

var notifierInstance Notifier

// NewLineNotifier creates a notifier from the LINE settings in cfg
func NewLineNotifier(cfg *appConfig.Config) *LineNotifier {
	return &LineNotifier{
		baseURL: strings.TrimRight(cfg.Line.APIBaseURL, "/"),
		token:   cfg.Line.ChannelAccessToken,
		to:      cfg.Line.NotifyUserID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// InitNotifier sets up the process-wide LINE notifier
func InitNotifier() Notifier {
	notifierInstance = NewLineNotifier(appConfig.GetConfig())
	return notifierInstance
}

// GetNotifier returns the process-wide notifier
func GetNotifier() Notifier {
	return notifierInstance
}

// SetNotifier sets the notifier instance (primarily for testing)
func SetNotifier(n Notifier) {
	notifierInstance = n
}

type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push sends text to the configured recipient
func (n *LineNotifier) Push(ctx context.Context, text string) error {
	if n.token == "" || n.to == "" {
		return ErrNotifierDisabled
	}
	if r := []rune(text); len(r) > lineMaxTextLength {
		text = string(r[:lineMaxTextLength])
	}

	body, err := json.Marshal(linePushRequest{
		To:       n.to,
		Messages: []lineMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode LINE message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v2/bot/message/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call LINE push endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("LINE push endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// MockNotifier records pushed messages for testing
type MockNotifier struct {
	messages []string
	err      error
	mu       sync.RWMutex
}

// NewMockNotifier creates a mock notifier that succeeds
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SetAsMockForTesting sets this mock as the global notifier
func (m *MockNotifier) SetAsMockForTesting() {
	SetNotifier(m)
}

// FailWith makes subsequent pushes return err
func (m *MockNotifier) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Push records text, or returns the configured failure
func (m *MockNotifier) Push(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, text)
	return nil
}

// Messages returns the pushed messages (for testing assertions)
func (m *MockNotifier) Messages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.messages...)
}
