package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	current *slog.Logger
	closer  io.Closer

	// fallback is used until Init succeeds
	fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Init installs the process-wide logger and makes it the slog default.
func Init(opts Options) error {
	logger, c, err := New(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	prev := closer
	current, closer = logger, c
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	slog.SetDefault(logger)
	return nil
}

// Close releases the log file of the process-wide logger.
func Close() error {
	mu.Lock()
	c := closer
	current, closer = nil, nil
	mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

// Logger returns the process-wide logger, or a stderr logger before Init.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return fallback
	}
	return current
}

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
