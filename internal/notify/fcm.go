package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/edap/edap-server/internal/config"
)

// ErrNoDevice is returned when a message is sent without a device token.
var ErrNoDevice = errors.New("no device token")

// messenger is the subset of *messaging.Client used by FCMSink.
type messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendDryRun(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSink delivers messages through Firebase Cloud Messaging.
type FCMSink struct {
	client messenger
	// inactive classifies errors that mean the device token is gone for good
	inactive func(error) bool
}

// NewFCMSink creates an FCMSink from a service account file.
func NewFCMSink(ctx context.Context, cfg *config.FCMConfig) (*FCMSink, error) {
	if cfg == nil || cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("fcm: credentials file is required")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("fcm: failed to initialise app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("fcm: failed to create messaging client: %w", err)
	}

	slog.Info("Using Firebase Cloud Messaging for notifications", "project", cfg.ProjectID)
	return newFCMSink(client), nil
}

func newFCMSink(client messenger) *FCMSink {
	return &FCMSink{client: client, inactive: isInactiveDeviceError}
}

// isInactiveDeviceError reports whether FCM rejected the device token itself.
// INVALID_ARGUMENT also covers malformed messages, so it only counts when FCM
// names the registration token as the bad argument.
func isInactiveDeviceError(err error) bool {
	if messaging.IsUnregistered(err) {
		return true
	}
	return messaging.IsInvalidArgument(err) && namesRegistrationToken(err)
}

func namesRegistrationToken(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "registration token")
}

func toFCM(deviceToken string, msg Message) *messaging.Message {
	return &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data:    msg.Data,
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
}

// Send implements Sink.
func (s *FCMSink) Send(ctx context.Context, deviceToken string, msg Message) error {
	if deviceToken == "" {
		return ErrNoDevice
	}
	if _, err := s.client.Send(ctx, toFCM(deviceToken, msg)); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

// CheckLiveness implements Sink with a dry-run send. Errors that do not say
// anything about the token are returned so callers can keep the device.
func (s *FCMSink) CheckLiveness(ctx context.Context, deviceToken string) (bool, error) {
	if deviceToken == "" {
		return false, ErrNoDevice
	}
	_, err := s.client.SendDryRun(ctx, toFCM(deviceToken, Message{}))
	switch {
	case err == nil:
		return true, nil
	case s.inactive(err):
		return false, nil
	default:
		return false, fmt.Errorf("fcm liveness: %w", err)
	}
}
