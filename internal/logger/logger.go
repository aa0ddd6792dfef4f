// Package logger is the process-wide structured logger.
//
// Records go through log/slog. Plain calls (Info, Warn, ...) are filtered by
// the process level only; the Ctx variants also honour the level of the
// service carried in the context's LogContext and prepend its scope fields.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents log levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// sink is where records end up and how they are rendered.
type sink struct {
	out    io.Writer
	file   *os.File // non-nil when out is a file we opened
	color  bool
	format string
}

var (
	minLevel slog.LevelVar

	mu      sync.RWMutex
	current = sink{out: os.Stdout, format: "text"}
	slogger *slog.Logger
)

func init() {
	current.color = isTerminal(os.Stdout.Fd())
	rebuild()
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name into a Level. Names are case-insensitive
// and "WARNING" is accepted as an alias for WARN.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// rebuild swaps in a handler for the current sink. The level is read
// through minLevel on every record, so SetLevel does not need a rebuild.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: &minLevel}
	var h slog.Handler
	if current.format == "json" {
		h = slog.NewJSONHandler(current.out, opts)
	} else {
		h = NewColorTextHandler(current.out, opts, current.color)
	}
	slogger = slog.New(h)
}

// openSink resolves an Output setting. Empty keeps the current writer.
func openSink(output string) (sink, error) {
	next := current
	switch strings.ToLower(output) {
	case "":
	case "stdout":
		next = sink{out: os.Stdout, color: isTerminal(os.Stdout.Fd())}
	case "stderr":
		next = sink{out: os.Stderr, color: isTerminal(os.Stderr.Fd())}
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return sink{}, fmt.Errorf("failed to open log file %q: %w", output, err)
		}
		next = sink{out: f, file: f}
	}
	next.format = current.format
	return next, nil
}

// Init initializes the logger with the given configuration.
// Output can be "stdout", "stderr", or a file path.
func Init(cfg Config) error {
	level := GetLevel()
	if cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = l
	}

	mu.Lock()
	next, err := openSink(cfg.Output)
	if err != nil {
		mu.Unlock()
		return err
	}
	if current.file != nil && current.file != next.file {
		_ = current.file.Close()
	}
	if f := strings.ToLower(cfg.Format); f == "text" || f == "json" {
		next.format = f
	}
	current = next
	mu.Unlock()

	minLevel.Set(level.slog())
	rebuild()
	return nil
}

// InitWithWriter initializes the logger with a custom io.Writer.
// This is primarily useful for testing.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	current.out = w
	current.file = nil
	current.color = enableColor
	mu.Unlock()

	SetLevel(level)
	SetFormat(format)
	rebuild()
}

// SetLevel sets the minimum log level. Unknown names are ignored.
func SetLevel(level string) {
	if level == "" {
		return
	}
	if l, err := ParseLevel(level); err == nil {
		minLevel.Set(l.slog())
	}
}

// GetLevel returns the current process-wide minimum level.
func GetLevel() Level {
	switch lv := minLevel.Level(); {
	case lv <= slog.LevelDebug:
		return LevelDebug
	case lv <= slog.LevelInfo:
		return LevelInfo
	case lv <= slog.LevelWarn:
		return LevelWarn
	default:
		return LevelError
	}
}

// SetFormat sets the output format (text or json)
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	mu.Lock()
	current.format = format
	mu.Unlock()
	rebuild()
}

// Format returns the current output format.
func Format() string {
	mu.RLock()
	defer mu.RUnlock()
	return current.format
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// enabledFor reports whether a record at level passes both the process-wide
// level and the service level carried by the LogContext, if any. Errors
// always pass.
func enabledFor(ctx context.Context, level Level) bool {
	if level >= LevelError {
		return true
	}
	if level < GetLevel() {
		return false
	}
	if lc := FromContext(ctx); lc != nil && level < lc.Level {
		return false
	}
	return true
}

func emit(ctx context.Context, level Level, msg string, args []any) {
	if !enabledFor(ctx, level) {
		return
	}
	getLogger().Log(ctx, level.slog(), msg, appendContextFields(ctx, args)...)
}

// Debug logs at debug level with structured fields
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) { emit(context.Background(), LevelDebug, msg, args) }

// Info logs at info level with structured fields
func Info(msg string, args ...any) { emit(context.Background(), LevelInfo, msg, args) }

// Warn logs at warn level with structured fields
func Warn(msg string, args ...any) { emit(context.Background(), LevelWarn, msg, args) }

// Error logs at error level with structured fields
func Error(msg string, args ...any) { emit(context.Background(), LevelError, msg, args) }

// DebugCtx logs at debug level with context (injects service, phase, trace ids)
func DebugCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelDebug, msg, args) }

// InfoCtx logs at info level with context
func InfoCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelInfo, msg, args) }

// WarnCtx logs at warn level with context
func WarnCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelWarn, msg, args) }

// ErrorCtx logs at error level with context. Errors are never filtered by
// the service level.
func ErrorCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelError, msg, args) }

// appendContextFields prepends LogContext fields so they appear first in output
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	scope := []struct{ key, value string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyLogger, lc.Logger},
		{KeyService, lc.Service},
		{KeyEvent, lc.Phase},
		{KeyHandler, lc.Handler},
	}

	out := make([]any, 0, 2*len(scope)+len(args))
	for _, f := range scope {
		if f.value != "" {
			out = append(out, f.key, f.value)
		}
	}
	return append(out, args...)
}
