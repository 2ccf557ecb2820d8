// Package logger configures the process-wide slog logger and carries
// request-scoped loggers through a context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

var loggerKey = contextKey{}

// ParseLevel reads a level name such as "debug", "info", "warn" or "error".
// An empty name is warn.
func ParseLevel(name string) (slog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn, fmt.Errorf("logger: unknown level %q", name)
	}
	return level, nil
}

// Initialize installs a text handler writing to stderr as the default logger.
// debug and verbose lower the configured level to debug and info.
func Initialize(level slog.Level, debug, verbose bool) *slog.Logger {
	return InitializeTo(os.Stderr, level, debug, verbose)
}

// InitializeTo is Initialize with an explicit destination.
func InitializeTo(w io.Writer, level slog.Level, debug, verbose bool) *slog.Logger {
	if debug {
		level = slog.LevelDebug
	} else if verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}
	l := slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(l)
	return l
}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func With(ctx context.Context, args ...any) context.Context {
	l := FromContext(ctx).With(args...)
	return WithLogger(ctx, l)
}

func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, slog.Any("error", err))
	}
	FromContext(ctx).Error(msg, args...)
}
