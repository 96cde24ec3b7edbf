// Package logging provides simple leveled logging for cmd/sfcb.
package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger wraps stdlib log with a minimum level below which messages are
// dropped.
type Logger struct {
	logger *log.Logger
	level  LogLevel
}

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
)

// defaultLogger is the package-level logger cmd/sfcb's Debug calls use.
// cmd/sfcb has no flag to change its level or output, so it's a plain var
// rather than the lazily-initialized, mutex-guarded singleton a
// configurable default would need.
var defaultLogger = &Logger{
	logger: log.New(os.Stderr, "", log.LstdFlags),
	level:  LevelDebug,
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var result string
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if result != "" {
				result += " "
			}
			result += fmt.Sprintf("%v=%v", args[i], args[i+1])
		}
	}
	if result != "" {
		return " " + result
	}
	return ""
}

func (l *Logger) Debug(msg string, args ...any) {
	if l.level > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s%s", msg, formatArgs(args))
}

// Debug logs at debug level through the package's default logger.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
