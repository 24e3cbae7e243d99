package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edap/edap-server/internal/config"
)

// logLevel is shared by every handler installed by this package so --debug
// can raise it after startup.
var logLevel = new(slog.LevelVar)

// traceHandler wraps an slog.Handler to automatically inject OpenTelemetry
// trace_id and span_id into every log record, enabling log-trace correlation.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

func newLogger(w io.Writer) *slog.Logger {
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	return slog.New(&traceHandler{Handler: base})
}

// InitLogging installs a JSON logger writing to stderr
func InitLogging(level slog.Level) {
	logLevel.Set(level)
	slog.SetDefault(newLogger(os.Stderr))
}

// configureLogFile adds a rotating log file next to stderr when logging.file
// is set. The returned func closes the file.
func configureLogFile(cfg config.LoggingConfig) func() {
	if cfg.File == "" {
		return func() {}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	slog.SetDefault(newLogger(io.MultiWriter(os.Stderr, file)))
	slog.Info("Logging to file", "file", cfg.File)
	return func() { _ = file.Close() }
}
