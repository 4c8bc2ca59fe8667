package utils

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey int

const requestIDKey ctxKey = iota

// NewLogger builds the process-wide JSON logger. Unknown levels fall back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// WithRequestID stores the request id so service logs can be correlated with
// the access log line.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes a standardized log line with module/action/request_id.
// Avoid logging sensitive payload; message should be summarized.
func LogEvent(ctx context.Context, module, action, message string, attrs ...any) {
	args := append([]any{
		"module", strings.ToLower(module),
		"action", action,
		"request_id", RequestID(ctx),
	}, attrs...)
	slog.Default().InfoContext(ctx, message, args...)
}

// LogWarn is LogEvent at warn level, used for failures that do not abort the operation.
func LogWarn(ctx context.Context, module, action, message string, attrs ...any) {
	args := append([]any{
		"module", strings.ToLower(module),
		"action", action,
		"request_id", RequestID(ctx),
	}, attrs...)
	slog.Default().WarnContext(ctx, message, args...)
}
