package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultTelegramAPI is the public Bot API endpoint
	DefaultTelegramAPI = "https://api.telegram.org"

	// maxMessageLength is the Bot API limit for one message, in UTF-16 code units
	maxMessageLength = 4096

	sendTimeout = 10 * time.Second
	sendTries   = 3
)

// Telegram sends alerts through a bot to a single chat.
type Telegram struct {
	endpoint string
	chatID   string
	client   *http.Client
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegram creates a Telegram notifier. An empty apiURL uses DefaultTelegramAPI.
func NewTelegram(apiURL, botToken, chatID string) *Telegram {
	if apiURL == "" {
		apiURL = DefaultTelegramAPI
	}
	return &Telegram{
		endpoint: strings.TrimSuffix(apiURL, "/") + "/bot" + botToken + "/sendMessage",
		chatID:   chatID,
		client:   &http.Client{Timeout: sendTimeout},
	}
}

// Notify implements Notifier. Server errors and rate limiting are retried a
// few times; a rejected request is not.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	text = truncate(text, maxMessageLength)
	payload, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, t.send(ctx, payload)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(sendTries))
	return err
}

func (t *Telegram) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// the URL carries the bot token, keep it out of the error
		return fmt.Errorf("telegram request failed: %w", unwrapURLError(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var out sendMessageResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(body, &out)

	switch {
	case resp.StatusCode == http.StatusOK && out.OK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("telegram HTTP %d: %s", resp.StatusCode, out.Description)
	default:
		return backoff.Permanent(fmt.Errorf("telegram HTTP %d: %s", resp.StatusCode, out.Description))
	}
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// truncate cuts text to at most limit UTF-16 code units, the unit Telegram
// counts in, without splitting a character.
func truncate(text string, limit int) string {
	units := 0
	for i, r := range text {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > limit {
			return text[:i]
		}
		units += n
	}
	return text
}
