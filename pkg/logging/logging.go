// Package logging adds level filtering on top of the standard log package.
package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel accepts debug, info, warn (or warning) and error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger writes messages at or above its level to a *log.Logger.
type Logger struct {
	level Level
	out   *log.Logger
}

// New returns a logger writing to w with the esmkit prefix.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, out: log.New(w, "esmkit: ", log.LstdFlags)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{level: LevelError + 1, out: log.New(io.Discard, "", 0)}
}

func (l *Logger) Level() Level { return l.level }

func (l *Logger) Enabled(level Level) bool { return level >= l.level }

func (l *Logger) logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	_ = l.out.Output(3, strings.ToUpper(level.String())+" "+fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// DebugLogger returns a *log.Logger for components that take one, such as
// the file walker. It discards output unless debug logging is enabled.
func (l *Logger) DebugLogger() *log.Logger {
	if !l.Enabled(LevelDebug) {
		return log.New(io.Discard, "", 0)
	}
	return log.New(l.out.Writer(), l.out.Prefix()+"DEBUG ", l.out.Flags())
}
