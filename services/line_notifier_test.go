package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appConfig "github.com/kendall-kelly/studio-ledger-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLineNotifier(baseURL, token, to string) *LineNotifier {
	cfg := &appConfig.Config{}
	cfg.Line.APIBaseURL = baseURL
	cfg.Line.ChannelAccessToken = token
	cfg.Line.NotifyUserID = to
	return NewLineNotifier(cfg)
}

func TestLineNotifier_Push(t *testing.T) {
	var received linePushRequest
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/message/push", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	notifier := newTestLineNotifier(server.URL+"/", "token-123", "U42")
	require.NoError(t, notifier.Push(context.Background(), "hello studio"))

	assert.Equal(t, "Bearer token-123", authHeader)
	assert.Equal(t, "U42", received.To)
	require.Len(t, received.Messages, 1)
	assert.Equal(t, "text", received.Messages[0].Type)
	assert.Equal(t, "hello studio", received.Messages[0].Text)
}

func TestLineNotifier_TruncatesLongMessages(t *testing.T) {
	var received linePushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := newTestLineNotifier(server.URL, "token", "U1")
	require.NoError(t, notifier.Push(context.Background(), strings.Repeat("ก", lineMaxTextLength+10)))
	assert.Equal(t, lineMaxTextLength, len([]rune(received.Messages[0].Text)))
}

func TestLineNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Authentication failed"}`))
	}))
	defer server.Close()

	err := newTestLineNotifier(server.URL, "bad", "U1").Push(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Authentication failed")
}

func TestLineNotifier_Disabled(t *testing.T) {
	err := newTestLineNotifier("https://api.line.me", "", "").Push(context.Background(), "hi")
	assert.True(t, errors.Is(err, ErrNotifierDisabled))
}
