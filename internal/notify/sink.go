// Package notify turns change events into push notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edap/edap-server/internal/config"
	"github.com/edap/edap-server/internal/token"
)

// Message is one push notification.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sink delivers messages to devices.
//
//go:generate mockgen -destination=mocks/mock_sink.go -package=mocks -source=sink.go Sink
type Sink interface {
	// Send delivers msg to the device registered under deviceToken.
	Send(ctx context.Context, deviceToken string, msg Message) error
	// CheckLiveness reports whether deviceToken still belongs to an installed app.
	CheckLiveness(ctx context.Context, deviceToken string) (bool, error)
}

// LogSink writes messages to the log instead of a device. Every device is
// considered alive.
type LogSink struct{}

// Send implements Sink.
func (LogSink) Send(_ context.Context, deviceToken string, msg Message) error {
	slog.Info("Notification", "device", token.Short(deviceToken), "title", msg.Title, "body", msg.Body)
	return nil
}

// CheckLiveness implements Sink.
func (LogSink) CheckLiveness(context.Context, string) (bool, error) {
	return true, nil
}

// NoopSink drops every message.
type NoopSink struct{}

// Send implements Sink.
func (NoopSink) Send(context.Context, string, Message) error { return nil }

// CheckLiveness implements Sink.
func (NoopSink) CheckLiveness(context.Context, string) (bool, error) { return true, nil }

// NewSink builds the Sink selected by cfg.
func NewSink(ctx context.Context, cfg config.NotificationsConfig) (Sink, error) {
	switch cfg.GetSink() {
	case config.SinkLog:
		return LogSink{}, nil
	case config.SinkNone:
		return NoopSink{}, nil
	case config.SinkFCM:
		return NewFCMSink(ctx, cfg.FCM)
	default:
		return nil, fmt.Errorf("unknown notification sink %q", cfg.Sink)
	}
}
