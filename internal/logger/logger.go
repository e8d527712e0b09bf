package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

type Config struct {
	Level  string
	Format string // "text", "json", "console"
	Output io.Writer
	// File, when set, receives a copy of every line (appended).
	File string
}

var (
	once    sync.Once
	lg      *slog.Logger
	logFile *os.File
	initErr error
)

// Init installs the default logger. Only the first call has any effect.
func Init(cfg Config) error {
	once.Do(func() {
		if cfg.Output == nil {
			cfg.Output = os.Stdout
		}
		out := cfg.Output
		if cfg.File != "" {
			f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				initErr = fmt.Errorf("open log file: %w", err)
			} else {
				logFile = f
				out = io.MultiWriter(cfg.Output, f)
			}
		}
		lg = slog.New(newHandler(cfg.Format, out, parseLevel(cfg.Level)))
		slog.SetDefault(lg)
	})
	return initErr
}

// Close releases the log file opened by Init, if any.
func Close() error {
	if logFile == nil {
		return nil
	}
	return logFile.Close()
}

func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return &consoleHandler{w: w, level: level, mu: &sync.Mutex{}}
	}
}

func L() *slog.Logger {
	if lg == nil {
		_ = Init(Config{Level: "debug", Format: "console"})
	}
	return lg
}

func parseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// consoleHandler outputs human-friendly log lines:
//
//	12:00:00 INFO  Pause toggled  playing=false
type consoleHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Level
	attrs []slog.Attr
	group string
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.Format(time.TimeOnly) // "15:04:05"
	lvl := levelTag(r.Level)

	line := fmt.Sprintf("%s %s %s", ts, lvl, r.Message)

	// pre-attached attrs (from WithAttrs)
	for _, a := range h.attrs {
		line += formatAttr(h.group, a)
	}
	// per-record attrs
	r.Attrs(func(a slog.Attr) bool {
		line += formatAttr(h.group, a)
		return true
	})

	line += "\n"
	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	_, err := fmt.Fprint(h.w, line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &consoleHandler{
		w:     h.w,
		mu:    h.mu,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
		group: h.group,
	}
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	prefix := name
	if h.group != "" {
		prefix = h.group + "." + name
	}
	return &consoleHandler{
		w:     h.w,
		mu:    h.mu,
		level: h.level,
		attrs: append([]slog.Attr{}, h.attrs...),
		group: prefix,
	}
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN "
	case l >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

func formatAttr(group string, a slog.Attr) string {
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	return fmt.Sprintf("  %s=%v", key, a.Value)
}
