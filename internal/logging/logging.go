// Package logging sets up the application's structured logger: slog with a
// custom handler that writes human-readable lines to stderr and, when
// GITSTACK_LOG_FILE is set, full structured records to a rotating file via
// lumberjack -- the same split the teacher corpus uses (a quiet/terse
// console stream plus a verbose, size-bounded debug file).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Debug enables slog.LevelDebug on the console handler (normally Info).
	Debug bool
	// Quiet suppresses all console output except warnings and errors.
	Quiet bool
	// FilePath, if non-empty, also logs full debug-level records (as JSON) to a rotating file.
	FilePath string
}

// New builds the application logger. Callers should install it with slog.SetDefault.
func New(opts Options) *slog.Logger {
	consoleLevel := slog.LevelInfo
	switch {
	case opts.Quiet:
		consoleLevel = slog.LevelWarn
	case opts.Debug:
		consoleLevel = slog.LevelDebug
	}

	handlers := []slog.Handler{newConsoleHandler(os.Stderr, consoleLevel)}
	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return slog.New(fanoutHandler{handlers: handlers})
}

// fanoutHandler dispatches every record to each wrapped handler whose level admits it.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return fanoutHandler{handlers: out}
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithGroup(name)
	}
	return fanoutHandler{handlers: out}
}

// consoleHandler renders a terse "LEVEL message key=val ..." line, the
// format an operator actually wants to read, as opposed to the file
// handler's full JSON record.
type consoleHandler struct {
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
}

func newConsoleHandler(w io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{w: w, level: level}
}

func (c *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level
}

func (c *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(levelTag(record.Level))
	b.WriteByte(' ')
	b.WriteString(record.Message)
	for _, a := range c.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')
	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *c
	clone.attrs = append(append([]slog.Attr{}, c.attrs...), attrs...)
	return &clone
}

func (c *consoleHandler) WithGroup(_ string) slog.Handler {
	return c
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
