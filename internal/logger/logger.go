package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// Logger emits structured JSON log entries tagged with the owning service.
type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

func New(service string) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// GenerateRequestID returns a fresh request correlation identifier.
func GenerateRequestID() string {
	return uuid.NewString()
}

func (l *Logger) Info(action, requestID, message string, fields map[string]any) {
	l.log(slog.LevelInfo, action, requestID, message, fields, nil)
}

func (l *Logger) Debug(action, requestID, message string, fields map[string]any) {
	l.log(slog.LevelDebug, action, requestID, message, fields, nil)
}

func (l *Logger) Error(action, requestID, message string, err error, fields map[string]any) {
	l.log(slog.LevelError, action, requestID, message, fields, err)
}

func (l *Logger) log(level slog.Level, action, requestID, message string, fields map[string]any, err error) {
	attrs := []slog.Attr{
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", requestID),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	if err != nil {
		attrs = append(attrs, slog.Group("error",
			slog.String("msg", err.Error()),
			slog.String("stack", string(debug.Stack())),
		))
	}

	l.handler.LogAttrs(context.TODO(), level, message, attrs...)
}
