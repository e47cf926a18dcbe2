package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/ppgview/internal/errors"
	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Str adds a string field and keeps the wrapper type for chaining.
func (e *LogEvent) Str(key, val string) *LogEvent {
	e.Event = e.Event.Str(key, val)
	return e
}

// Err adds an error field and keeps the wrapper type for chaining.
func (e *LogEvent) Err(err error) *LogEvent {
	e.Event = e.Event.Err(err)
	return e
}

// Init initializes the logger based on the given configuration
func Init(level string, isService bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	SetOutput(os.Stdout, isService)
	SetLogLevel(lvl)

	return nil
}

// SetOutput redirects log output, e.g. into a TUI panel.
func SetOutput(w io.Writer, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	mu.Lock()
	log = zerolog.New(output).With().Timestamp().Logger()
	mu.Unlock()
}

// ParseLevel maps a configured level name to a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, errors.New().WithData(errors.ErrInvalidLogLevel, level)
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs a debug message
func Debug() *LogEvent {
	l := current()
	return &LogEvent{l.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	l := current()
	return &LogEvent{l.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	l := current()
	return &LogEvent{l.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	l := current()
	return &LogEvent{l.Error()}
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	l := current()
	return &LogEvent{l.Fatal()}
}

// zlogger adapts a zerolog.Logger to the Logger interface.
type zlogger struct {
	z *zerolog.Logger
}

// Default returns a Logger backed by the package level logger.
func Default() Logger {
	return &zlogger{}
}

// New returns a Logger writing JSON lines to w. Mostly useful in tests.
func New(w io.Writer) Logger {
	z := zerolog.New(w).With().Timestamp().Logger()
	return &zlogger{z: &z}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	z := zerolog.Nop()
	return &zlogger{z: &z}
}

func (l *zlogger) base() zerolog.Logger {
	if l.z != nil {
		return *l.z
	}
	return current()
}

func (l *zlogger) Debug() *LogEvent {
	z := l.base()
	return &LogEvent{z.Debug()}
}

func (l *zlogger) Info() *LogEvent {
	z := l.base()
	return &LogEvent{z.Info()}
}

func (l *zlogger) Warn() *LogEvent {
	z := l.base()
	return &LogEvent{z.Warn()}
}

func (l *zlogger) Error() *LogEvent {
	z := l.base()
	return &LogEvent{z.Error()}
}

func (l *zlogger) ErrorWithCode(err errors.Error) *LogEvent {
	z := l.base()
	return &LogEvent{z.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

func (l *zlogger) ErrorWithContext(err error, component, operation string) *LogEvent {
	z := l.base()
	ev := z.Error().
		Str("component", component).
		Str("operation", operation).
		Err(err)
	if code, ok := errors.CodeOf(err); ok {
		ev = ev.Str("error_code", string(code))
	}
	return &LogEvent{ev}
}

func (l *zlogger) With(key, value string) Logger {
	z := l.base().With().Str(key, value).Logger()
	return &zlogger{z: &z}
}
