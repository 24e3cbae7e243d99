package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/edap/edap-server/internal/model"
	edapotel "github.com/edap/edap-server/internal/otel"
	"github.com/edap/edap-server/internal/telemetry"
	"github.com/edap/edap-server/internal/token"
)

// ErrUnresolvedSubject is returned when an event points at a class or subject
// that does not exist in the stored profile.
var ErrUnresolvedSubject = errors.New("subject does not resolve")

// dispatchOrder is the order in which buckets are sent. Class changes never
// produce a notification.
var dispatchOrder = []model.EventKind{model.KindGrade, model.KindTest, model.KindNote, model.KindAbsence}

// Report summarises one Dispatch call.
type Report struct {
	Sent    []model.EventKind `json:"sent"`
	Failed  []model.EventKind `json:"failed"`
	Skipped []model.EventKind `json:"skipped"`
}

// Dispatcher groups change events into localized messages and sends them.
type Dispatcher struct {
	sink      Sink
	localizer *Localizer
	metrics   *telemetry.NotifyMetrics
	tracer    trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records notification outcomes.
func WithMetrics(m *telemetry.NotifyMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracer wraps each dispatch in a span.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sink Sink, localizer *Localizer, opts ...Option) *Dispatcher {
	d := &Dispatcher{sink: sink, localizer: localizer}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch notifies the owner of p about events. p must be the profile as
// stored after the events were applied, since subject names are resolved
// against it. Every message is sent independently and failures are logged,
// counted and not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, p *model.UserProfile, events []model.ChangeEvent) Report {
	var report Report
	if p.Settings.DisableAll || len(events) == 0 {
		return report
	}
	if p.DeviceToken == "" {
		slog.Debug("No device registered, skipping notifications", "token", token.Short(p.Token))
		return report
	}

	ctx, span := edapotel.StartSpan(ctx, d.tracer, "notify.dispatch",
		trace.WithAttributes(edapotel.Token(p.Token), edapotel.AttrChangeCount.Int(len(events))))
	defer span.End()

	for _, kind := range dispatchOrder {
		if p.Settings.Ignores(kind) {
			continue
		}

		body, ok, err := d.body(p, kind, events)
		if err != nil {
			slog.Warn("Skipping notification bucket", "token", token.Short(p.Token), "kind", kind, "error", err)
			report.Skipped = append(report.Skipped, kind)
			d.metrics.RecordNotification(ctx, string(kind), "skipped")
			continue
		}
		if !ok {
			continue
		}

		msg := Message{
			Title: d.localizer.Title(p.Lang, kind),
			Body:  body,
			Data:  map[string]string{"type": string(kind)},
		}
		if err := d.sink.Send(ctx, p.DeviceToken, msg); err != nil {
			slog.Error("Failed to send notification", "token", token.Short(p.Token), "kind", kind, "error", err)
			edapotel.RecordError(span, err)
			report.Failed = append(report.Failed, kind)
			d.metrics.RecordNotification(ctx, string(kind), "failed")
			continue
		}
		report.Sent = append(report.Sent, kind)
		d.metrics.RecordNotification(ctx, string(kind), "sent")
	}

	span.SetAttributes(edapotel.AttrNotifySent.Int(len(report.Sent)), edapotel.AttrNotifyFailed.Int(len(report.Failed)))
	return report
}

// body formats the bucket of kind. ok is false when the bucket is empty.
func (d *Dispatcher) body(p *model.UserProfile, kind model.EventKind, events []model.ChangeEvent) (string, bool, error) {
	var items []string
	absences := 0

	for _, e := range events {
		if e.Kind != kind {
			continue
		}
		switch kind {
		case model.KindGrade, model.KindNote:
			name, ok := p.SubjectName(e.ClassID, e.SubjectID)
			if !ok {
				return "", false, fmt.Errorf("%w: class %d subject %d", ErrUnresolvedSubject, e.ClassID, e.SubjectID)
			}
			items = append(items, formatItem(name, e))
		case model.KindTest:
			if e.Test != nil {
				items = append(items, fmt.Sprintf("%s: %s", e.Test.Subject, e.Test.Test))
			}
		case model.KindAbsence:
			// a shrinking absence list is recorded but never announced
			if e.CountDelta > 0 {
				absences += e.CountDelta
			}
		}
	}

	if kind == model.KindAbsence {
		if absences == 0 {
			return "", false, nil
		}
		return fmt.Sprintf("%+d", absences), true, nil
	}
	if len(items) == 0 {
		return "", false, nil
	}
	return strings.Join(items, ", "), true, nil
}

func formatItem(subject string, e model.ChangeEvent) string {
	switch {
	case e.Grade != nil && e.Grade.Note != "":
		return fmt.Sprintf("%s: %d (%s)", subject, e.Grade.Grade, e.Grade.Note)
	case e.Grade != nil:
		return fmt.Sprintf("%s: %d", subject, e.Grade.Grade)
	case e.Note != nil:
		return fmt.Sprintf("%s: %s", subject, e.Note.Note)
	default:
		return subject
	}
}

// SendDirect sends an operator-written message to the device of p.
func (d *Dispatcher) SendDirect(ctx context.Context, p *model.UserProfile, title, body string) error {
	if p.DeviceToken == "" {
		return ErrNoDevice
	}
	err := d.sink.Send(ctx, p.DeviceToken, Message{Title: title, Body: body, Data: map[string]string{"type": "direct"}})
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	d.metrics.RecordNotification(ctx, "direct", outcome)
	return err
}
