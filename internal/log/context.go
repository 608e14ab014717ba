package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request-scoped logger, or the default logger tagged
// with component "unknown" outside a request.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// RequestStarted logs the arrival of r at debug level.
func (l *Logger) RequestStarted(ctx context.Context, r *http.Request, clientIP string) {
	l.WithComponent(ComponentHTTP).DebugContext(ctx, "HTTP request started", NewFields().
		WithRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)...)
}

// RequestCompleted logs the outcome of r. Client errors log at warn, server
// errors at error.
func (l *Logger) RequestCompleted(ctx context.Context, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	l.WithComponent(ComponentHTTP).log(ctx, level, "HTTP request completed", NewFields().
		WithRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithResponse(status, elapsed).
		WithClientIP(clientIP))
}

// Failure logs err with its classification under component.
func (l *Logger) Failure(ctx context.Context, msg string, err error, errorType, component, operation string, fields Fields) {
	l.WithComponent(component).ErrorContext(ctx, msg, fields.
		WithError(err, errorType).
		WithOperation(operation)...)
}
