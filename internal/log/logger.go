// Package log wraps log/slog with a component-aware logger and the
// attribute names used across bilancio.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger tagged with the component that owns it. The tag
// is kept apart from the other attributes so WithComponent replaces it
// instead of stacking a second one.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	// Handler overrides the default text handler on stdout.
	Handler slog.Handler
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
	}
}

// ParseLevel maps a LOG_LEVEL string to a slog level, defaulting to info.
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

// NewHandler builds a text or json handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = NewHandler(os.Stdout, "text", config.Level)
	}
	return wrap(slog.New(handler), config.Component)
}

func wrap(base *slog.Logger, component string) *Logger {
	l := &Logger{Logger: base, base: base, component: component}
	if component != "" {
		l.Logger = base.With(FieldComponent, component)
	}
	return l
}

// With returns a logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return wrap(l.base.With(args...), l.component)
}

// WithComponent returns a logger tagged with component in place of the
// current one.
func (l *Logger) WithComponent(component string) *Logger {
	return wrap(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
