package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// formatLog renders a message followed by its key/value pairs
func formatLog(msg string, args ...any) string {
	if len(args) == 0 {
		return msg
	}

	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(args) {
			fmt.Fprint(&b, args[i], "=", args[i+1])
		} else {
			fmt.Fprint(&b, args[i])
		}
	}
	return b.String()
}

// SlogLogger adapts a *slog.Logger to the Logger interface
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l, falling back to slog.Default when nil
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l.With("component", "roleauth")}
}

func (s *SlogLogger) Debug(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelDebug, msg, args...)
}

func (s *SlogLogger) Info(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelInfo, msg, args...)
}

func (s *SlogLogger) Warn(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelWarn, msg, args...)
}

func (s *SlogLogger) Error(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelError, msg, args...)
}
