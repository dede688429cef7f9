package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ariefcatur/toy-session-engine/internal/telemetry"
)

type Options struct {
	Service   string
	Env       string
	Level     string
	AddSource bool
	Out       io.Writer // stdout when nil
}

// New builds the JSON logger, decorates it with trace ids and installs it as
// the slog default.
func New(opts Options) *slog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	h := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     parseLevel(opts.Level),
		AddSource: opts.AddSource,
	})

	base := slog.New(telemetry.NewContextHandler(h)).With(
		"service", opts.Service,
		"env", opts.Env,
	)
	slog.SetDefault(base)
	return base
}

// Discard is for tests and for components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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
