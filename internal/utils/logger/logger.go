package logger

import (
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"

	"savesync/internal/utils/logger/slogpretty"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type options struct {
	level *slog.Level
	out   io.Writer
}

type Option func(*options)

// WithLevel переопределяет уровень окружения. Пустая или неизвестная строка игнорируется.
func WithLevel(level string) Option {
	return func(o *options) {
		if l, ok := ParseLevel(level); ok {
			o.level = &l
		}
	}
}

// WithOutput направляет вывод в w вместо stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// ParseLevel понимает debug, info, warn(ing) и error в любом регистре.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New возвращает логгер под окружение: local - цветной вывод, dev - JSON с DEBUG,
// prod и все остальное - JSON с INFO.
func New(env string, opts ...Option) *slog.Logger {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	level := slog.LevelInfo
	if env == envLocal || env == envDev {
		level = slog.LevelDebug
	}
	if o.level != nil {
		level = *o.level
	}

	if env == envLocal {
		pretty := slogpretty.PrettyHandlerOptions{
			SlogOpts: &slog.HandlerOptions{Level: level},
		}
		return slog.New(pretty.NewPrettyHandler(o.out))
	}

	return slog.New(slog.NewJSONHandler(o.out, &slog.HandlerOptions{Level: level}))
}

// Discard возвращает логгер, который ничего не пишет.
func Discard() *slog.Logger {
	return slog.New(slogpretty.NewDiscardHandler())
}
