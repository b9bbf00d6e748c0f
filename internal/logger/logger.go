package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"rental-escrow-backend/internal/domain"
)

var defaultLogger *slog.Logger

// Initialize sets up the global logger with the specified level and format
func Initialize(level, format string) {
	defaultLogger = slog.New(NewHandler(os.Stdout, level, format))
	slog.SetDefault(defaultLogger)
}

// NewHandler builds the handler Initialize installs. Records logged with a context
// carrying a valid span get trace_id and span_id attributes.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return traceHandler{next: handler}
}

// ParseLevel maps a config level name to a slog level; unknown names mean info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type traceHandler struct {
	next slog.Handler
}

func (h traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{next: h.next.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{next: h.next.WithGroup(name)}
}

// Get returns the default logger
func Get() *slog.Logger {
	if defaultLogger == nil {
		Initialize("info", "text")
	}
	return defaultLogger
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	Get().DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// WithEscrow returns a logger scoped to one agreement
func WithEscrow(escrowID int64) *slog.Logger {
	return Get().With("escrow_id", escrowID)
}

// EnterMethod logs method entry (process tracking)
func EnterMethod(methodName string, args ...any) {
	allArgs := append([]any{"method", methodName, "event", "enter"}, args...)
	Get().Debug("→ Method entered", allArgs...)
}

// ExitMethod logs method exit (process tracking)
func ExitMethod(methodName string, args ...any) {
	allArgs := append([]any{"method", methodName, "event", "exit"}, args...)
	Get().Debug("← Method exited", allArgs...)
}

// ExitMethodWithError logs method exit with error. Domain rejections log at warn.
func ExitMethodWithError(methodName string, err error, args ...any) {
	allArgs := append([]any{"method", methodName, "event", "exit", "error", err}, args...)
	if code := domain.CodeOf(err); code != "" && code != domain.CodeTransferFailed {
		Get().Warn("← Method exited with error", allArgs...)
		return
	}
	Get().Error("← Method exited with error", allArgs...)
}

// DatabaseCall logs database operation (debug log for external resources)
func DatabaseCall(operation, query string, args ...any) {
	allArgs := append([]any{"operation", operation, "query", query}, args...)
	Get().Debug("→ Database call", allArgs...)
}

// ExternalServiceCall logs external service call (debug log for external resources)
func ExternalServiceCall(service, operation string, args ...any) {
	allArgs := append([]any{"service", service, "operation", operation}, args...)
	Get().Debug("→ External service call", allArgs...)
}

// ExternalServiceResult logs external service result (debug log for external resources)
func ExternalServiceResult(service, operation string, err error, args ...any) {
	allArgs := append([]any{"service", service, "operation", operation}, args...)
	if err != nil {
		allArgs = append(allArgs, "error", err)
		Get().Error("← External service call failed", allArgs...)
	} else {
		Get().Debug("← External service call succeeded", allArgs...)
	}
}
