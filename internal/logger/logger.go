package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	pid          = os.Getpid()
	levelStrings = map[LogLevel]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
	}
	zerologLevels = map[LogLevel]zerolog.Level{
		DEBUG: zerolog.DebugLevel,
		INFO:  zerolog.InfoLevel,
		WARN:  zerolog.WarnLevel,
		ERROR: zerolog.ErrorLevel,
	}
)

func (l LogLevel) String() string {
	if s, ok := levelStrings[l]; ok {
		return s
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLevel converts DEBUG, INFO, WARN or ERROR into a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	for level, name := range levelStrings {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return level, nil
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// Logger provides structured logging with timestamp, PID and calling function
type Logger struct {
	mu sync.RWMutex
	zl zerolog.Logger
}

// NewLogger creates a JSON logger writing to w
func NewLogger(minLevel LogLevel, w io.Writer) *Logger {
	return &Logger{zl: newZerolog(minLevel, w)}
}

// NewConsoleLogger creates a logger with human readable output
func NewConsoleLogger(minLevel LogLevel, w io.Writer) *Logger {
	return NewLogger(minLevel, zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02T15:04:05.000Z07:00"})
}

func newZerolog(minLevel LogLevel, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerologLevels[minLevel]).
		With().
		Timestamp().
		Int("pid", pid).
		Logger()
}

// Default logger instance (INFO level)
var defaultLogger = NewLogger(INFO, os.Stdout)

// Skip: getFunctionName -> log -> Debug/Info/Warn/Error -> actual caller.
// The package-level functions call log directly so the depth is the same.
const callerSkip = 3

// getFunctionName extracts the calling function name
func getFunctionName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}

	fullName := runtime.FuncForPC(pc).Name()
	parts := strings.Split(fullName, "/")
	name := parts[len(parts)-1]

	if idx := strings.LastIndex(name, "."); idx != -1 {
		return name[idx+1:]
	}
	return name
}

func (l *Logger) log(level LogLevel, skip int, message string, context []map[string]interface{}) {
	l.mu.RLock()
	zl := l.zl
	l.mu.RUnlock()

	event := zl.WithLevel(zerologLevels[level])
	if event == nil {
		return
	}

	event = event.Str("func", getFunctionName(skip))
	if len(context) > 0 && context[0] != nil {
		event = event.Fields(context[0])
	}
	event.Msg(message)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, context ...map[string]interface{}) {
	l.log(DEBUG, callerSkip, message, context)
}

// Info logs an info message
func (l *Logger) Info(message string, context ...map[string]interface{}) {
	l.log(INFO, callerSkip, message, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, context ...map[string]interface{}) {
	l.log(WARN, callerSkip, message, context)
}

// Error logs an error message
func (l *Logger) Error(message string, context ...map[string]interface{}) {
	l.log(ERROR, callerSkip, message, context)
}

// SetMinLevel changes the minimum level of this logger
func (l *Logger) SetMinLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Level(zerologLevels[level])
}

// Package-level convenience functions using default logger

func Debug(message string, context ...map[string]interface{}) {
	defaultLogger.log(DEBUG, callerSkip, message, context)
}

func Info(message string, context ...map[string]interface{}) {
	defaultLogger.log(INFO, callerSkip, message, context)
}

func Warn(message string, context ...map[string]interface{}) {
	defaultLogger.log(WARN, callerSkip, message, context)
}

func Error(message string, context ...map[string]interface{}) {
	defaultLogger.log(ERROR, callerSkip, message, context)
}

// SetMinLevel sets the minimum log level for the default logger
func SetMinLevel(level LogLevel) {
	defaultLogger.SetMinLevel(level)
}

// Configure replaces the default logger's output. format is "json" or "console".
func Configure(level LogLevel, format string, w io.Writer) {
	var l *Logger
	if strings.EqualFold(format, "console") {
		l = NewConsoleLogger(level, w)
	} else {
		l = NewLogger(level, w)
	}

	defaultLogger.mu.Lock()
	defaultLogger.zl = l.zl
	defaultLogger.mu.Unlock()
}

// Default returns the package-level logger
func Default() *Logger {
	return defaultLogger
}
