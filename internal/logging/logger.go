// Package logging provides simple leveled logging for the ksvc module.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger wraps an output writer with level filtering and a small set of
// contextual key/value fields a child logger carries on every line.
type Logger struct {
	mu      *sync.Mutex
	output  io.Writer
	level   LogLevel
	format  string // "text" or "json"
	noColor bool
	fields  []kv
}

type kv struct {
	key string
	val any
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex

	debugEnabled atomic.Bool
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
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

// Config holds logging configuration.
type Config struct {
	Level   LogLevel
	Format  string // "text" (default) or "json"
	Output  io.Writer
	Sync    bool // reserved: this module has no background writer to make async
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		mu:      &sync.Mutex{},
		output:  output,
		level:   config.Level,
		format:  format,
		noColor: config.NoColor,
	}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// SetDebug is the module-level debug toggle from spec.md §9's "Global
// parameter toggle" re-architecture note: a single writer (whatever owns
// process startup, analogous to the kernel's module_param) and many
// readers (DebugEnabled callers). When enabled, the default logger's
// level drops to LevelDebug regardless of its prior configuration.
// Logger.Debug itself is gated only by the logger's level, and disabling
// the toggle does not restore the default logger's previous level.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
	if enabled {
		Default().level = LevelDebug
	}
}

// DebugEnabled reports the current value of the module-level debug toggle.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// withField returns a child logger carrying one extra context field,
// sharing the parent's mutex so interleaved writes from parent and child
// loggers stay line-atomic.
func (l *Logger) withField(key string, val any) *Logger {
	fields := make([]kv, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)
	fields = append(fields, kv{key, val})
	return &Logger{
		mu:      l.mu,
		output:  l.output,
		level:   l.level,
		format:  l.format,
		noColor: l.noColor,
		fields:  fields,
	}
}

// WithInstance returns a child logger tagging every line with the given
// instance correlation id — the KSVC analogue of the teacher's
// WithDevice(devID), generalized from "which block device" to "which
// control-channel instance".
func (l *Logger) WithInstance(id uint64) *Logger {
	return l.withField("instance", id)
}

// WithRegion returns a child logger tagging every line with the mapped
// region name ("submit", "complete", "shared") — the analogue of the
// teacher's WithQueue(queueID), generalized from "which I/O queue" to
// "which mmap region".
func (l *Logger) WithRegion(region string) *Logger {
	return l.withField("region", region)
}

// WithRequest tags every line with a correlation id and request kind —
// the analogue of the teacher's WithRequest(tag, op).
func (l *Logger) WithRequest(corrID uint64, kind string) *Logger {
	return l.withField("op", kind).withField("corr_id", corrID)
}

// WithError tags every line with an error's message.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.withField("error", err.Error())
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.format {
	case "json":
		l.writeJSON(level, msg, args)
	default:
		l.writeText(level, msg, args)
	}
}

func (l *Logger) writeText(level LogLevel, msg string, args []any) {
	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339Nano))
	b.WriteByte(' ')
	b.WriteString("[" + level.String() + "]")
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range l.fields {
		fmt.Fprintf(&b, " %s=%v", f.key, f.val)
	}
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	b.WriteByte('\n')
	io.WriteString(l.output, b.String())
}

func (l *Logger) writeJSON(level LogLevel, msg string, args []any) {
	rec := make(map[string]any, 4+len(l.fields)+len(args)/2)
	rec["time"] = time.Now().Format(time.RFC3339Nano)
	rec["level"] = strings.ToLower(level.String())
	rec["msg"] = msg
	for _, f := range l.fields {
		rec[f.key] = f.val
	}
	for i := 0; i+1 < len(args); i += 2 {
		rec[fmt.Sprintf("%v", args[i])] = args[i+1]
	}
	enc := json.NewEncoder(l.output)
	_ = enc.Encode(rec)
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// Debugf, Infof, Warnf, Errorf are printf-style variants.
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, fmt.Sprintf(format, args...)) }

// Printf is kept for compatibility with code expecting a *log.Logger-ish
// interface.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// Global convenience functions operating on Default().
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
