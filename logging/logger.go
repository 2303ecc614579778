// Package logging configures log/slog for the service: human-readable text
// on the console and JSON lines in a weekly rotating file.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/medigraph/config"
)

// Options selects outputs and levels.
type Options struct {
	Dir            string // Empty disables the file output
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	Console        io.Writer // Defaults to stdout
}

// OptionsFromConfig maps the application configuration to logger options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}
}

// New builds a logger for opts. The returned closer releases the log file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: ConsoleLevel(opts.Env, opts.Level),
	})

	if opts.Dir == "" {
		return slog.New(consoleHandler), nopCloser{}, nil
	}

	retention := opts.RetentionWeeks
	if retention <= 0 {
		retention = 4
	}
	file, err := OpenRotatingFile(opts.Dir, retention, opts.MaxFileSize)
	if err != nil {
		return nil, nil, err
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: FileLevel()})
	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), file, nil
}

// parseLogLevel maps a level name to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
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

// ConsoleLevel returns level when set. Otherwise dev logs info, test logs
// errors only and staging/prod log warnings.
func ConsoleLevel(env config.Environment, level string) slog.Level {
	if strings.TrimSpace(level) != "" {
		return parseLogLevel(level)
	}
	switch env {
	case config.EnvTest:
		return slog.LevelError
	case config.EnvStaging, config.EnvProduction:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// FileLevel is the level of the JSON file output, which keeps everything.
func FileLevel() slog.Level {
	return slog.LevelDebug
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// multiHandler fans records out to every handler that accepts their level.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
