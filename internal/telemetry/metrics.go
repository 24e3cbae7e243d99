// Package telemetry provides OpenTelemetry instrumentation for the edap server.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/edap/edap-server/sync"

	// NotifyMetricsMeterName is the name used for the notification metrics meter
	NotifyMetricsMeterName = "github.com/edap/edap-server/notify"

	// LoginMetricsMeterName is the name used for the login metrics meter
	LoginMetricsMeterName = "github.com/edap/edap-server/login"
)

// SyncMetrics holds the OpenTelemetry instruments for background sync workers
type SyncMetrics struct {
	syncDuration  metric.Float64Histogram
	changes       metric.Int64Counter
	activeWorkers metric.Int64UpDownCounter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"edap_sync_duration_seconds",
		metric.WithDescription("Duration of sync iterations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	changes, err := meter.Int64Counter(
		"edap_sync_changes_total",
		metric.WithDescription("Number of change events detected by sync"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	activeWorkers, err := meter.Int64UpDownCounter(
		"edap_active_workers",
		metric.WithDescription("Number of running sync workers"),
		metric.WithUnit("{worker}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration:  syncDuration,
		changes:       changes,
		activeWorkers: activeWorkers,
	}, nil
}

// RecordSyncDuration records the duration of one sync iteration
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, duration time.Duration, success bool) {
	if m == nil || m.syncDuration == nil {
		return
	}

	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordChanges counts detected change events of one kind
func (m *SyncMetrics) RecordChanges(ctx context.Context, kind string, n int) {
	if m == nil || m.changes == nil || n == 0 {
		return
	}

	m.changes.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

// WorkerStarted increments the running worker gauge
func (m *SyncMetrics) WorkerStarted(ctx context.Context) {
	if m == nil || m.activeWorkers == nil {
		return
	}
	m.activeWorkers.Add(ctx, 1)
}

// WorkerStopped decrements the running worker gauge
func (m *SyncMetrics) WorkerStopped(ctx context.Context) {
	if m == nil || m.activeWorkers == nil {
		return
	}
	m.activeWorkers.Add(ctx, -1)
}

// NotifyMetrics holds the OpenTelemetry instruments for push notifications
type NotifyMetrics struct {
	notifications metric.Int64Counter
}

// NewNotifyMetrics creates a new NotifyMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewNotifyMetrics(provider metric.MeterProvider) (*NotifyMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	notifications, err := provider.Meter(NotifyMetricsMeterName).Int64Counter(
		"edap_notifications_total",
		metric.WithDescription("Number of notification messages by kind and outcome"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	return &NotifyMetrics{notifications: notifications}, nil
}

// RecordNotification counts one notification attempt
func (m *NotifyMetrics) RecordNotification(ctx context.Context, kind, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	}

	m.notifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// LoginMetrics holds the OpenTelemetry instruments for the login endpoint
type LoginMetrics struct {
	logins metric.Int64Counter
}

// NewLoginMetrics creates a new LoginMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewLoginMetrics(provider metric.MeterProvider) (*LoginMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	logins, err := provider.Meter(LoginMetricsMeterName).Int64Counter(
		"edap_logins_total",
		metric.WithDescription("Number of login attempts by path"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, err
	}

	return &LoginMetrics{logins: logins}, nil
}

// RecordLogin counts one login. path is fast, full, wrong_password or failed.
func (m *LoginMetrics) RecordLogin(ctx context.Context, path string) {
	if m == nil || m.logins == nil {
		return
	}

	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}
