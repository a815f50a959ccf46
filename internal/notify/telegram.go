package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ==============================================
// TELEGRAM CLIENT
// ==============================================

const apiBaseURL = "https://api.telegram.org"

// TelegramClient is the "send text to a recipient id" primitive over the
// Telegram Bot API.
type TelegramClient struct {
	botToken   string
	baseURL    string
	HTTPClient *http.Client
}

func NewTelegramClient(botToken string) *TelegramClient {
	return &TelegramClient{
		botToken: botToken,
		baseURL:  apiBaseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewTelegramClientWithBaseURL is used by tests to point at a fake API
func NewTelegramClientWithBaseURL(botToken, baseURL string) *TelegramClient {
	c := NewTelegramClient(botToken)
	c.baseURL = baseURL
	return c
}

// Enabled reports whether a bot token is configured
func (c *TelegramClient) Enabled() bool {
	return c.botToken != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendError is a channel-level delivery failure
type SendError struct {
	StatusCode  int
	Description string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("telegram send failed (status %d): %s", e.StatusCode, e.Description)
}

// RecipientGone reports whether the recipient id is stale (chat deleted,
// bot blocked). Used elsewhere to prune dead channel links.
func (e *SendError) RecipientGone() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusBadRequest
}

// SendMessage delivers a Markdown text message to a chat id
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	if !c.Enabled() {
		return fmt.Errorf("telegram bot token not configured")
	}

	payload := sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var result sendMessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}

	if !result.OK {
		return &SendError{StatusCode: resp.StatusCode, Description: result.Description}
	}

	return nil
}
