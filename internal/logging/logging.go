// Package logging provides structured logging for the engine, backend,
// sample library, and HTTP façade using log/slog, with rotated file
// output via lumberjack.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu             sync.RWMutex
	base           *slog.Logger
	currentLevel   = new(slog.LevelVar)
	initOnce       sync.Once
	rotatingWriter *lumberjack.Logger
)

const (
	// LevelTrace is finer-grained than slog.LevelDebug and is printed
	// as "TRACE". Entity state transitions log at Debug, not at this level.
	LevelTrace = slog.Level(-8)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			if name, known := levelNames[level]; known {
				a.Value = slog.StringValue(name)
			}
		}
	}
	return a
}

// Config controls where logs are written and at what level.
type Config struct {
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
	Level      slog.Level
}

// Init sets up the global base logger. Safe to call once per process;
// subsequent calls are no-ops.
func Init(cfg Config) {
	initOnce.Do(func() {
		currentLevel.Set(cfg.Level)

		if cfg.FilePath == "" {
			cfg.FilePath = "logs/sinfonia.log"
		}
		rotatingWriter = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    valueOr(cfg.MaxSizeMB, 100),
			MaxBackups: valueOr(cfg.MaxBackups, 10),
			MaxAge:     valueOr(cfg.MaxAgeDays, 30),
			Compress:   true,
		}

		handler := slog.NewJSONHandler(rotatingWriter, &slog.HandlerOptions{
			Level:       currentLevel,
			ReplaceAttr: replaceAttr,
		})

		mu.Lock()
		base = slog.New(handler)
		mu.Unlock()

		if cfg.Console {
			consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:       currentLevel,
				ReplaceAttr: replaceAttr,
			})
			mu.Lock()
			base = slog.New(&multiHandler{handlers: []slog.Handler{handler, consoleHandler}})
			mu.Unlock()
		}

		slog.SetDefault(Logger())
	})
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// SetLevel changes the verbosity of all loggers created through this package.
func SetLevel(level slog.Level) { currentLevel.Set(level) }

// Logger returns the global base logger, defaulting to a stderr text
// logger if Init has not been called (e.g. in tests).
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: currentLevel, ReplaceAttr: replaceAttr}))
	}
	return base
}

// ForComponent returns a logger tagged with "component" for one of the
// engine's subsystems (controller, backend, soundlib, facade, theme).
func ForComponent(component string) *slog.Logger {
	return Logger().With("component", component)
}

// multiHandler fans a record out to several slog.Handlers, used to write
// both the rotated JSON file and a human-readable console stream.
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
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
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
