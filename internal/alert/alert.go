// Package alert forwards operational failures to a human operator.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edap/edap-server/internal/config"
)

// Notifier delivers a short text to the operator channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Noop drops every alert. It is used when no channel is configured.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(context.Context, string) error { return nil }

// New returns the notifier selected by cfg.
func New(cfg config.AlertsConfig) (Notifier, error) {
	if cfg.Telegram == nil {
		return Noop{}, nil
	}
	botToken, err := cfg.Telegram.GetBotToken()
	if err != nil {
		return nil, fmt.Errorf("telegram alerts: %w", err)
	}
	slog.Info("Operator alerts go to telegram", "chat_id", cfg.Telegram.ChatID)
	return NewTelegram(cfg.Telegram.APIURL, botToken, cfg.Telegram.ChatID), nil
}

// Report logs err and forwards it to n. Delivery failures are logged only.
func Report(ctx context.Context, n Notifier, op string, err error) {
	if err == nil {
		return
	}
	slog.Error("Operation failed", "operation", op, "error", err)
	if n == nil {
		return
	}
	if sendErr := n.Notify(ctx, fmt.Sprintf("[edap-server] %s: %v", op, err)); sendErr != nil {
		slog.Warn("Failed to deliver operator alert", "operation", op, "error", sendErr)
	}
}
