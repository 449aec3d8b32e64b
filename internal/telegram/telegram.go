package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/energynews/internal/logger"
	"github.com/deusflow/energynews/internal/retry"
)

// ErrNotConfigured means the bot token or chat ID is missing.
var ErrNotConfigured = errors.New("telegram token or chat id not configured")

const (
	DefaultBaseURL = "https://api.telegram.org"

	// MaxMessageRunes and MaxCaptionRunes stay under the Bot API limits
	// (4096 and 1024).
	MaxMessageRunes = 4000
	MaxCaptionRunes = 1000
)

type Client struct {
	Token   string
	ChatID  string
	BaseURL string
	HTTP    *http.Client
	Retry   retry.RetryConfig
}

func NewClient(token, chatID string) *Client {
	return &Client{
		Token:   token,
		ChatID:  chatID,
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Retry:   retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
	}
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// SendMessage sends an HTML message with link previews disabled.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	return c.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id":                  c.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
}

// SendPhoto sends a photo by URL with an HTML caption, trimmed to MaxCaptionRunes.
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) error {
	if utf8.RuneCountInString(caption) > MaxCaptionRunes {
		caption = string([]rune(caption)[:MaxCaptionRunes])
	}
	return c.call(ctx, "sendPhoto", map[string]interface{}{
		"chat_id":    c.ChatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": "HTML",
	})
}

func (c *Client) call(ctx context.Context, method string, payload map[string]interface{}) error {
	if c.Token == "" || c.ChatID == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	attempt := 0
	err = retry.WithRetry(ctx, c.Retry, func() error {
		attempt++
		err := c.post(ctx, method, body)
		if err != nil {
			logger.Warn("telegram request failed", "method", method, "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	logger.Info("sent to Telegram", "method", method, "attempt", attempt)
	return nil
}

func (c *Client) post(ctx context.Context, method string, body []byte) error {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	url := fmt.Sprintf("%s/bot%s/%s", base, c.Token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	var ar apiResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ar)

	if resp.StatusCode == http.StatusOK && ar.OK {
		return nil
	}
	err = fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, ar.Description)
	// 4xx other than rate limiting will not get better on retry.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
