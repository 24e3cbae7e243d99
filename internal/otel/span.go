// Package otel provides span helpers shared by the sync, notify and service layers.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/edap/edap-server/internal/token"
)

// Attribute keys shared by every span the server creates.
const (
	AttrToken          = attribute.Key("edap.token")
	AttrChangeCount    = attribute.Key("edap.changes")
	AttrSyncOutcome    = attribute.Key("edap.sync.outcome")
	AttrConnectorError = attribute.Key("edap.connector.error")
	AttrNotifySent     = attribute.Key("edap.notify.sent")
	AttrNotifyFailed   = attribute.Key("edap.notify.failed")
	AttrLoginPath      = attribute.Key("edap.login.path")
)

// Token returns the token attribute. Only the short prefix is recorded.
func Token(tok string) attribute.KeyValue {
	return AttrToken.String(token.Short(tok))
}

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
// This provides graceful degradation when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// Note: The status description is intentionally generic to prevent sensitive
// information (e.g., SQL queries, connection strings) from appearing in trace
// status. The full error details are still available via span events for debugging.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
